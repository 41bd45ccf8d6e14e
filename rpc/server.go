package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/qerrors"
)

var logger = log.NewModuleLogger(log.RPC)

const requestTimeout = 10 * time.Second

// Server is the JSON-RPC-over-HTTP server spec.md §6 describes:
// "over HTTP POST to the node's RPC port". Grounded on the teacher's
// `julienschmidt/httprouter` + `rs/cors` pair (declared for its own
// networks/rpc HTTP transport) rather than reimplementing routing by
// hand.
type Server struct {
	backend Backend
	handler http.Handler
}

func NewServer(backend Backend) *Server {
	router := httprouter.New()
	s := &Server{backend: backend}
	router.POST("/", s.handleHTTP)

	s.handler = cors.New(cors.Options{
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	logger.Info("starting RPC server", "addr", addr)
	return http.ListenAndServe(addr, s.handler)
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, newError(nil, int(qerrors.CodeValidationFailed), "malformed JSON-RPC request"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	writeResponse(w, s.dispatch(ctx, req))
}

func (s *Server) dispatch(ctx context.Context, req Request) *Response {
	handler, ok := methods[req.Method]
	if !ok {
		return newError(req.ID, int(qerrors.CodeValidationFailed), "method not found: "+req.Method)
	}

	result, err := handler(ctx, s.backend, req.Params)
	if err != nil {
		return newError(req.ID, codeOf(err), err.Error())
	}
	return newResult(req.ID, result)
}

func codeOf(err error) int {
	if tax, ok := err.(qerrors.Taxonomy); ok {
		return int(tax.Code())
	}
	return -32603 // JSON-RPC internal error, for errors outside the taxonomy.
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	_ = json.NewEncoder(w).Encode(resp)
}
