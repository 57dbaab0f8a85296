package server

import "http-fixture/application/http"

// CORS returns a middleware adding the Access-Control-Allow headers to every response.
func CORS(origin, methods, headers string) Middleware {
	return func(_ *http.Request, res *http.Response) bool {
		res.SetHeader("Access-Control-Allow-Origin", origin)
		res.SetHeader("Access-Control-Allow-Methods", methods)
		res.SetHeader("Access-Control-Allow-Headers", headers)
		return true
	}
}
