package api

import (
	"encoding/json"
	"errors"
	"github.com/rs/zerolog"
	"io/ioutil"
	"net/http"
	"phenotips.org/pedigree/pedigree"
	"phenotips.org/pedigree/types"
)

const (
	ConvertPath = "/pedigree/convert"
	ProbandPath = "/pedigree/proband"
)

type Converter interface {
	Convert(p *pedigree.Pedigree) ([]types.PatientRecord, error)
}

type Request struct {
	Converter Converter
}

// pedigreeBody carries the data either as an object or as JSON text, the
// same way it is stored in records.
type pedigreeBody struct {
	Data  interface{} `json:"data"`
	Image string      `json:"image"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (req *Request) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ConvertPath, req.ConvertPedigree)
	mux.HandleFunc(ProbandPath, req.FindProband)
	return mux
}

func (req *Request) ConvertPedigree(w http.ResponseWriter, r *http.Request) {
	requestLogger := makeRequestLogger(w, r)
	p, ok := readPedigree(w, r, &requestLogger)
	if !ok {
		return
	}
	patients, err := req.Converter.Convert(p)
	if err != nil {
		writeError(w, &requestLogger, statusFor(err), err)
		return
	}
	requestLogger.Info().Int("patients", len(patients)).Msg("Converted pedigree")
	writeJSON(w, &requestLogger, http.StatusOK, patients)
}

func (req *Request) FindProband(w http.ResponseWriter, r *http.Request) {
	requestLogger := makeRequestLogger(w, r)
	p, ok := readPedigree(w, r, &requestLogger)
	if !ok {
		return
	}
	proband := p.Proband()
	if proband == nil {
		writeError(w, &requestLogger, http.StatusNotFound, errors.New("pedigree has no linked proband"))
		return
	}
	writeJSON(w, &requestLogger, http.StatusOK, proband)
}

func readPedigree(w http.ResponseWriter, r *http.Request, requestLogger *zerolog.Logger) (*pedigree.Pedigree, bool) {
	if r.Method != http.MethodPost {
		writeError(w, requestLogger, http.StatusMethodNotAllowed, errors.New("only 'POST' method is allowed here"))
		return nil, false
	}
	msg, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, requestLogger, http.StatusBadRequest, err)
		return nil, false
	}
	var body pedigreeBody
	if err = json.Unmarshal(msg, &body); err != nil {
		writeError(w, requestLogger, http.StatusBadRequest, err)
		return nil, false
	}
	p, err := pedigree.FromValue(body.Data, body.Image)
	if err != nil {
		writeError(w, requestLogger, statusFor(err), err)
		return nil, false
	}
	*requestLogger = withPedigree(requestLogger, p)
	return p, true
}

// statusFor maps well-formed pedigrees in an unusable format to 422 and
// everything else to 400.
func statusFor(err error) int {
	if errors.Is(err, pedigree.ErrUnsupportedFormat) || errors.Is(err, pedigree.ErrUnsupportedOperation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, requestLogger *zerolog.Logger, status int, err error) {
	requestLogger.Err(err).Int("status", status).Msg("Could not process request")
	writeJSON(w, requestLogger, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, requestLogger *zerolog.Logger, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		requestLogger.Err(err).Msg("Could not encode response")
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
