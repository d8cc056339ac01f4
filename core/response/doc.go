// Package response builds handler.Response values: JSON bodies, structured
// HTTP errors, plain status responses and websocket upgrades.
//
//	func getProduct(ctx *httpapi.Context) handler.Response {
//		p, err := catalog.Get(ctx, id)
//		if err != nil {
//			return response.Error(response.ErrNotFound.WithError(err))
//		}
//		return response.JSON(p)
//	}
//
// Errors returned from responses reach the router's ErrorHandler;
// JSONErrorHandler renders them as {"code","message","details"} using the
// status carried by HTTPError or any error implementing StatusCode() int.
package response
