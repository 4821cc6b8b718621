// Package httpapi is the read-side HTTP surface: paginated JSON reads of
// the stored primitives, plus a handful of stub endpoints that echo a
// descriptive string for the account/contract/token/logs families the
// original source's explorer handlers covered at much greater length --
// those stubs are not part of the core and are not ported verbatim;
// only a fixed, named set of endpoints is exposed.
//
// Router: github.com/julienschmidt/httprouter wrapped with
// github.com/rs/cors, both real dependencies (go.mod) that the
// JSON-RPC API-registry style in cmd/rpcdaemon/commands doesn't
// exercise -- this plain-REST surface is their home instead.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/ledgerwatch/log/v3"
	"github.com/rs/cors"

	"github.com/satschain/evm-indexer/model"
	"github.com/satschain/evm-indexer/store"
)

const defaultItemsCount = 50

// Server serves the read-only JSON API over a Store handle.
type Server struct {
	st      store.Store
	chainID uint32
	logger  log.Logger
}

func New(st store.Store, chainID uint32, logger log.Logger) *Server {
	return &Server{st: st, chainID: chainID, logger: logger}
}

// Handler builds the routed, CORS-wrapped http.Handler.
func (s *Server) Handler() http.Handler {
	r := httprouter.New()

	r.GET("/api/v2/blocks", s.listBlocks)
	r.GET("/api/v2/blocks/:number", s.getBlock)
	r.GET("/api/v2/transactions", s.listTransactions)
	r.GET("/api/v2/transactions/:hash", s.getTransaction)
	r.GET("/api/v2/stats", s.stats)
	r.GET("/api/v2/main-page/blocks", s.mainPageBlocks)
	r.GET("/api/v2/main-page/transactions", s.mainPageTransactions)
	r.GET("/api/v2/stats/charts/transactions", s.transactionsChart)

	registerStubs(r)

	return cors.Default().Handler(r)
}

// listResponse is {items, next_page_params}. next_page_params's
// block_number is items.last().height - 1, or 1 when items is empty.
type listResponse struct {
	Items          interface{}    `json:"items"`
	NextPageParams nextPageParams `json:"next_page_params"`
}

type nextPageParams struct {
	BlockNumber int64 `json:"block_number"`
	ItemsCount  int   `json:"items_count"`
}

func itemsCount(r *http.Request) int {
	q := r.URL.Query().Get("items_count")
	if q == "" {
		return defaultItemsCount
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return defaultItemsCount
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) listBlocks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n := itemsCount(r)
	blocks, err := s.st.QueryBlocks(r.Context(), s.chainID, n)
	if err != nil {
		s.logger.Error("httpapi: list blocks", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items:          blocks,
		NextPageParams: nextPageParamsFor(len(blocks), blockHeight(blocks), n),
	})
}

func (s *Server) getBlock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	n, err := strconv.ParseUint(ps.ByName("number"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	blk, err := s.st.QueryBlockByNumber(r.Context(), s.chainID, uint32(n))
	if err != nil {
		s.logger.Error("httpapi: get block", "number", n, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	if blk == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "block not found"})
		return
	}
	writeJSON(w, http.StatusOK, blk)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	n := itemsCount(r)
	txs, err := s.st.QueryTransactions(r.Context(), s.chainID, n)
	if err != nil {
		s.logger.Error("httpapi: list transactions", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	var lastHeight int64 = -1
	if len(txs) > 0 {
		lastHeight = int64(txs[len(txs)-1].BlockNumber)
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items:          txs,
		NextPageParams: nextPageParamsFor(len(txs), lastHeight, n),
	})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hash := model.HexToHash(ps.ByName("hash"))
	tx, err := s.st.QueryTransactionByHash(r.Context(), s.chainID, hash)
	if err != nil {
		s.logger.Error("httpapi: get transaction", "hash", ps.ByName("hash"), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	if tx == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := s.st.QueryStats(r.Context(), s.chainID)
	if err != nil {
		s.logger.Error("httpapi: stats", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// mainPageBlocks/mainPageTransactions mirror the listing handlers but
// with the small fixed count a landing page needs.
func (s *Server) mainPageBlocks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	blocks, err := s.st.QueryBlocks(r.Context(), s.chainID, 4)
	if err != nil {
		s.logger.Error("httpapi: main-page blocks", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) mainPageTransactions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	txs, err := s.st.QueryTransactions(r.Context(), s.chainID, 6)
	if err != nil {
		s.logger.Error("httpapi: main-page transactions", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// transactionsChart is a minimal chart feed derived from recent stats;
// the columnar store's own charting rollups are out of scope here, so
// this reports the single aggregate it already has rather than a time
// series the store doesn't compute.
func (s *Server) transactionsChart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := s.st.QueryStats(r.Context(), s.chainID)
	if err != nil {
		s.logger.Error("httpapi: transactions chart", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chart_data": []map[string]interface{}{
			{"date": "latest", "tx_count": st.TotalTransactions},
		},
	})
}

func nextPageParamsFor(itemCount int, lastHeight int64, requestedCount int) nextPageParams {
	if itemCount == 0 {
		return nextPageParams{BlockNumber: 1, ItemsCount: requestedCount}
	}
	return nextPageParams{BlockNumber: lastHeight - 1, ItemsCount: requestedCount}
}

func blockHeight(blocks []model.Block) int64 {
	if len(blocks) == 0 {
		return -1
	}
	return int64(blocks[len(blocks)-1].Number)
}

func errorBody(err error) map[string]string {
	return map[string]string{"message": err.Error()}
}
