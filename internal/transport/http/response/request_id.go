package response

import (
	"net/http"

	reqctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

func RequestIDFromContext(r *http.Request) string {
	return reqctx.GetRequestID(r.Context())
}
