// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

/*
Package validation validates HTTP request bodies and path parameters with
go-playground/validator v10.

A single validator instance is shared process-wide; it caches struct metadata
and is safe for concurrent use. Failures are reported under the field's JSON
name and convert to the API's VALIDATION_ERROR envelope:

	type ingestRequest struct {
	    Action string `json:"action" validate:"required,oneof=created updated cancelled deleted"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	    return
	}

Custom tags:

  - identifier: user, appointment and room ids (1-128 of [A-Za-z0-9._@-],
    starting with a letter or digit)
*/
package validation
