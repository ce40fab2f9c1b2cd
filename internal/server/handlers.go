package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nevindra/quiver"
	"github.com/nevindra/quiver/ingest"
)

// --- Request/response types ---

type processRequest struct {
	FilePath     string `json:"file_path"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type processResponse struct {
	CollectionName string   `json:"collection_name"`
	NumChunks      int      `json:"num_chunks"`
	PreviewChunks  []string `json:"preview_chunks"`
}

type queryRequest struct {
	CollectionName string `json:"collection_name"`
	Query          string `json:"query"`
	TopK           int    `json:"top_k"`
	Expand         bool   `json:"expand"`
	VariantCount   int    `json:"variant_count"`
}

type searchResult struct {
	Content string  `json:"content"`
	Score   float32 `json:"score"`
	ChunkID string  `json:"chunk_id,omitempty"`
}

type queryResponse struct {
	Results []searchResult `json:"results"`
}

type parentChildResponse struct {
	Parents  []searchResult `json:"parents"`
	Children []searchResult `json:"children"`
}

type rerankRequest struct {
	Query          string         `json:"query"`
	InitialResults []searchResult `json:"initial_results"`
	TopK           int            `json:"top_k"`
}

type rerankResponse struct {
	Results []searchResult `json:"results"`
}

type expandRequest struct {
	Query        string `json:"query"`
	VariantCount int    `json:"variant_count"`
}

type expandResponse struct {
	Queries []string `json:"queries"`
}

type generateRequest struct {
	Query         string   `json:"query"`
	ContextChunks []string `json:"context_chunks"`
}

type generateResponse struct {
	Answer string `json:"answer"`
}

type convertResponse struct {
	Content string `json:"content"`
}

type clearRequest struct {
	CollectionName string `json:"collection_name"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// --- Handlers ---

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "quiver API is running"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "missing file: " + err.Error()})
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.writeError(w, err)
		return
	}
	// Reject path traversal in the client-supplied filename.
	name := filepath.Base(header.Filename)
	path := filepath.Join(s.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("server: file uploaded", "path", path)
	writeJSON(w, http.StatusOK, map[string]string{"file_path": path, "filename": name})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text, err := s.extractFile(req.FilePath)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{Content: text})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.process(w, r, quiver.ModeFlat)
}

func (s *Server) handleProcessPC(w http.ResponseWriter, r *http.Request) {
	s.process(w, r, quiver.ModeParentChild)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, mode quiver.ChunkMode) {
	var req processRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text, err := s.extractFile(req.FilePath)
	if err != nil {
		s.writeError(w, err)
		return
	}

	params := s.params
	if req.ChunkSize > 0 {
		params.ChunkSize = req.ChunkSize
	}
	if req.ChunkOverlap > 0 {
		params.ChunkOverlap = req.ChunkOverlap
	}

	doc := quiver.Document{
		ID:        req.FilePath,
		Title:     filepath.Base(req.FilePath),
		Source:    req.FilePath,
		Content:   text,
		CreatedAt: quiver.NowUnix(),
	}

	name, err := s.engine.ProcessDocument(r.Context(), doc, mode, params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	col, err := s.engine.Registry().Resolve(name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	chunks := col.Index.Chunks()
	preview := make([]string, 0, 3)
	for _, c := range chunks {
		if len(preview) == 3 {
			break
		}
		preview = append(preview, truncate(c.Content, 200))
	}

	writeJSON(w, http.StatusOK, processResponse{
		CollectionName: name,
		NumChunks:      len(chunks),
		PreviewChunks:  preview,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}

	var hits []quiver.ScoredChunk
	var err error
	if req.Expand {
		variants := req.VariantCount
		if variants <= 0 {
			variants = 3
		}
		hits, err = s.engine.SearchExpanded(r.Context(), req.CollectionName, req.Query, topK, variants)
	} else {
		hits, err = s.engine.Search(r.Context(), req.CollectionName, req.Query, topK)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Results: toResults(hits)})
}

func (s *Server) handleQueryPC(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}

	children, err := s.engine.Search(r.Context(), req.CollectionName, req.Query, topK)
	if err != nil {
		s.writeError(w, err)
		return
	}
	parents, err := s.engine.ResolveParents(req.CollectionName, children)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := parentChildResponse{Children: toResults(children)}
	for _, p := range parents {
		resp.Parents = append(resp.Parents, searchResult{Content: p.Content, Score: 1.0, ChunkID: p.ID})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}

	candidates := make([]quiver.ScoredChunk, 0, len(req.InitialResults))
	for _, res := range req.InitialResults {
		candidates = append(candidates, quiver.ScoredChunk{
			Chunk: quiver.Chunk{ID: res.ChunkID, Content: res.Content},
			Score: res.Score,
		})
	}

	reranked, err := s.engine.Rerank(r.Context(), req.Query, candidates, topK)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rerankResponse{Results: toResults(reranked)})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	variants := req.VariantCount
	if variants <= 0 {
		variants = 3
	}

	queries, err := s.engine.ExpandQuery(r.Context(), req.Query, variants)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expandResponse{Queries: queries})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	answer, err := s.engine.Answer(r.Context(), req.Query, req.ContextChunks)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Answer: answer})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.engine.ClearCollection(r.Context(), req.CollectionName); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// --- Helpers ---

// extractFile reads a file and extracts plain text based on its extension.
func (s *Server) extractFile(path string) (string, error) {
	if path == "" {
		return "", &quiver.ErrInvalidParameter{Param: "file_path", Reason: "must not be empty"}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &quiver.ErrInvalidParameter{Param: "file_path", Reason: err.Error()}
	}

	ct := ingest.ContentTypeFromExtension(filepath.Ext(path))
	ex, ok := s.extractors[ct]
	if !ok {
		ex = ingest.PlainTextExtractor{}
	}
	return ex.Extract(content)
}

func toResults(hits []quiver.ScoredChunk) []searchResult {
	out := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, searchResult{Content: h.Chunk.Content, Score: h.Score, ChunkID: h.Chunk.ID})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case quiver.IsInvalidParameter(err):
		status = http.StatusBadRequest
	case quiver.IsNotFound(err):
		status = http.StatusNotFound
	case quiver.IsDependencyTimeout(err):
		status = http.StatusGatewayTimeout
	}
	s.logger.Error("server: request failed", "status", status, "error", err)
	writeJSON(w, status, errorResponse{Detail: err.Error()})
}
