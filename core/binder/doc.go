// Package binder decodes request bodies and query strings into structs.
//
//	var req AddItemRequest
//	if err := binder.JSON()(ctx.Request(), &req); err != nil {
//		return response.Error(response.ErrBadRequest.WithError(err))
//	}
//
// JSON rejects unknown fields, trailing data and bodies above DefaultMaxJSONSize.
// String fields are stripped of control characters after decoding.
package binder
