package api

import (
	"bytes"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"phenotips.org/pedigree/converter"
	"phenotips.org/pedigree/vocabulary"
	"strings"
	"testing"
)

const legacyBody = `{
	"image": "svg",
	"data": {
		"proband": 1,
		"members": [
			{"id": 1, "prop": {"phenotipsId": "P0000001", "lName": "Roe", "gender": "F", "disorders": ["104300"]}},
			{"id": 2, "prop": {}}
		]
	}
}`

func newTestServer() *httptest.Server {
	omim := vocabulary.FromTerms("omim", vocabulary.Term{ID: "104300", Name: "Alzheimer disease"})
	req := &Request{Converter: converter.New(omim, converter.Config{})}
	return httptest.NewServer(req.Handler())
}

func post(t *testing.T, server *httptest.Server, path, body string) (int, string) {
	resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.String()
}

func TestConvertPedigree(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	t.Run("Legacy pedigree", func(t *testing.T) {
		status, body := post(t, server, ConvertPath, legacyBody)
		require.Equal(t, http.StatusOK, status)
		require.JSONEq(t, `[{
			"id": "P0000001",
			"sex": "F",
			"patient_name": {"last_name": "Roe"},
			"disorders": [{"id": "104300", "name": "Alzheimer disease"}]
		}]`, body)
	})
	t.Run("Pedigree as text", func(t *testing.T) {
		status, body := post(t, server, ConvertPath, `{"data": "{\"members\": []}"}`)
		require.Equal(t, http.StatusOK, status)
		require.JSONEq(t, `[]`, body)
	})
	t.Run("Flat pedigree", func(t *testing.T) {
		status, body := post(t, server, ConvertPath, `{"data": {"data": [{"id": 0}]}}`)
		require.Equal(t, http.StatusUnprocessableEntity, status)
		require.Contains(t, body, "error")
	})
	t.Run("Unknown format", func(t *testing.T) {
		status, _ := post(t, server, ConvertPath, `{"data": {"nodes": []}}`)
		require.Equal(t, http.StatusUnprocessableEntity, status)
	})
	t.Run("Empty pedigree", func(t *testing.T) {
		status, _ := post(t, server, ConvertPath, `{"image": "svg"}`)
		require.Equal(t, http.StatusBadRequest, status)
	})
	t.Run("Invalid body", func(t *testing.T) {
		status, _ := post(t, server, ConvertPath, `{"data": `)
		require.Equal(t, http.StatusBadRequest, status)
	})
	t.Run("Wrong method", func(t *testing.T) {
		resp, err := http.Get(server.URL + ConvertPath)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestFindProband(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	t.Run("Legacy pedigree", func(t *testing.T) {
		status, body := post(t, server, ProbandPath, legacyBody)
		require.Equal(t, http.StatusOK, status)
		require.JSONEq(t, `{"patient_id": "P0000001", "last_name": "Roe"}`, body)
	})
	t.Run("Flat pedigree", func(t *testing.T) {
		status, body := post(t, server, ProbandPath, `{"data": {"data": [{"id": 0, "phenotipsId": "P7", "proband": true}]}}`)
		require.Equal(t, http.StatusOK, status)
		require.JSONEq(t, `{"patient_id": "P7"}`, body)
	})
	t.Run("Unlinked proband", func(t *testing.T) {
		status, _ := post(t, server, ProbandPath, `{"data": {"proband": 2, "members": [{"id": 2, "prop": {}}]}}`)
		require.Equal(t, http.StatusNotFound, status)
	})
}

func TestRequestID(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	t.Run("Echoed from the request", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+ProbandPath, strings.NewReader(legacyBody))
		require.NoError(t, err)
		req.Header.Set(RequestIDHeader, "export-42")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, "export-42", resp.Header.Get(RequestIDHeader))
	})
	t.Run("Generated when missing", func(t *testing.T) {
		first, err := http.Post(server.URL+ConvertPath, "application/json", strings.NewReader(legacyBody))
		require.NoError(t, err)
		first.Body.Close()
		second, err := http.Post(server.URL+ConvertPath, "application/json", strings.NewReader(`{"data": `))
		require.NoError(t, err)
		second.Body.Close()

		require.NotEmpty(t, first.Header.Get(RequestIDHeader))
		require.NotEmpty(t, second.Header.Get(RequestIDHeader))
		require.NotEqual(t, first.Header.Get(RequestIDHeader), second.Header.Get(RequestIDHeader))
	})
}
