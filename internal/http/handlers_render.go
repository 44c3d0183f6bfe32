package http

import (
	"errors"
	"net/http"
	"strings"

	applog "ledgerview/internal/log"
	"ledgerview/internal/results"
	"ledgerview/internal/tooloutput"
)

type toolResultRequest struct {
	Tool    string `json:"tool"`
	Content string `json:"content"`
}

type exportResponse struct {
	Ref         string                    `json:"ref"`
	Instruction results.RenderInstruction `json:"instruction"`
}

// decodeEnvelope reads a result envelope from the body. Malformed input is
// not an error for the caller; it dispatches to the placeholder.
func decodeEnvelope(w http.ResponseWriter, r *http.Request) (results.RenderInstruction, error) {
	b, err := readBody(w, r)
	if err != nil {
		return results.RenderInstruction{}, err
	}
	res, err := results.Decode(b)
	if errors.Is(err, results.ErrMalformedPayload) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Malformed result envelope", applog.FieldError, err)
		return results.Placeholder(), nil
	}
	return results.Dispatch(res), nil
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	inst, err := decodeEnvelope(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleToolResult(w http.ResponseWriter, r *http.Request) {
	var req toolResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tool := strings.TrimSpace(req.Tool)
	if tool != tooloutput.ToolRunQuery && tool != tooloutput.ToolInsights {
		writeError(w, http.StatusBadRequest, "unsupported tool")
		return
	}

	inst := results.Dispatch(tooloutput.Parse(tool, req.Content))
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Tool output dispatched",
		applog.FieldTool, tool,
		applog.FieldWidget, string(inst.Widget),
	)
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "sheets export not configured")
		return
	}
	inst, err := decodeEnvelope(w, r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	ref, err := s.deps.Exporter.Export(r.Context(), inst)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Export failed", err, applog.ComponentSheets, applog.OpExport,
				applog.NewFields().WithResult(string(inst.Kind), string(inst.Widget)))
		writeError(w, http.StatusBadGateway, "export failed")
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Ref: ref, Instruction: inst})
}
