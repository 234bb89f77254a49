package web

import (
	"context"
	"net/http"

	"github.com/emilyselwood/csv-to-ics/internal/core"
)

// WithRequestMetadata copies the client IP and User-Agent into ctx so they
// are stored with the conversion record. RemoteAddr has already been
// rewritten by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
