package api

import (
	"github.com/rs/zerolog"
	"net/http"
	"phenotips.org/pedigree/logger"
	"phenotips.org/pedigree/pedigree"
	"phenotips.org/pedigree/utils"
	"strconv"
	"sync/atomic"
	"time"
)

var defaultLogger = logger.NewLogger("API")

// RequestIDHeader is read from the request when present and always echoed back.
const RequestIDHeader = "X-Request-Id"

const RequestInfoFieldsKey = "request_info"

type endpointLoggerFields struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Url    string `json:"url"`
}

var requestCounter uint64

func requestID(request *http.Request) string {
	if id := request.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	seq := atomic.AddUint64(&requestCounter, 1)
	started := strconv.FormatInt(time.Now().UnixNano(), 10)
	return strconv.FormatUint(utils.HashString(started+"/"+strconv.FormatUint(seq, 10)), 16)
}

func makeRequestLogger(w http.ResponseWriter, request *http.Request) zerolog.Logger {
	fields := endpointLoggerFields{
		ID:     requestID(request),
		Method: request.Method,
		Url:    request.URL.String(),
	}
	w.Header().Set(RequestIDHeader, fields.ID)
	return defaultLogger.
		With().Interface(RequestInfoFieldsKey, fields).Logger()
}

// withPedigree adds what was parsed from the body to the request logger.
func withPedigree(requestLogger *zerolog.Logger, p *pedigree.Pedigree) zerolog.Logger {
	ctx := requestLogger.With().Str("pedigree_format", p.Format().String())
	if ids, err := p.PatientIDs(); err == nil {
		ctx = ctx.Int("linked_patients", len(ids))
	}
	return ctx.Logger()
}
