package httpapi

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// registerStubs wires the account/contract/token/logs stub families:
// endpoints that exist so a client expecting the full explorer API gets
// a response, not a 404, but whose bodies are nothing more than a
// descriptive string -- source verification and the rest of the
// original explorer's handler sprawl are explicitly out of scope.
func registerStubs(r *httprouter.Router) {
	stub := func(path string, describe func(httprouter.Params) string) {
		r.GET(path, func(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
			writeJSON(w, http.StatusOK, describe(ps))
		})
	}

	stub("/api/v2/addresses/:address", func(ps httprouter.Params) string {
		return fmt.Sprintf("account lookup for address %s is not implemented", ps.ByName("address"))
	})
	stub("/api/v2/addresses/:address/transactions", func(ps httprouter.Params) string {
		return fmt.Sprintf("account transaction history for %s is not implemented", ps.ByName("address"))
	})
	stub("/api/v2/smart-contracts/:address", func(ps httprouter.Params) string {
		return fmt.Sprintf("contract source verification for %s is not implemented", ps.ByName("address"))
	})
	stub("/api/v2/tokens/:address", func(ps httprouter.Params) string {
		return fmt.Sprintf("token metadata for %s is not implemented", ps.ByName("address"))
	})
	stub("/api/v2/tokens/:address/holders", func(ps httprouter.Params) string {
		return fmt.Sprintf("token holder listing for %s is not implemented", ps.ByName("address"))
	})
	stub("/api/v1/logs", func(httprouter.Params) string {
		return "arbitrary log filtering by address/topic is not implemented"
	})
}
