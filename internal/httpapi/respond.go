package httpapi

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// writeJSON writes a 200 JSON response. Grounded on the teacher's
// service/pkg/api/router/respond.go.
func writeJSON(ctx *fasthttp.RequestCtx, data any) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(data)
}

// writeJSONError writes a JSON error body with the given status.
func writeJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]string{"error": message})
}

// pathParam reads a router-matched {name} segment.
func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	if v := ctx.UserValue(name); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
