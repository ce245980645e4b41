// Package memory implements the hybrid long-term memory engine: write-time
// embedding, and read-time fusion of full-text (BM25) and vector search with
// temporal decay and diversity re-ranking.
package memory

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/openpawz/pawgo/internal/store"
)

const (
	bm25Weight   = 0.4
	vectorWeight = 0.6
	mmrLambda    = 0.7
	decayHalfLifeDays = 30.0

	branchFetchLimit = 3000
	vectorThreshold  = 0.15 // minimum cosine similarity to keep a vector candidate

	backfillBatchSize = 500
	backfillDelay     = 50 * time.Millisecond
)

// Embedder is the subset of embedding.Client the engine needs, so tests can
// substitute a fake without spinning up a real runtime.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine is the hybrid memory engine bound to one store and one embedder.
// A nil Embedder degrades gracefully to keyword-only search and storage.
type Engine struct {
	store *store.DB
	embed Embedder
}

// New creates an Engine. embed may be nil, in which case Store persists
// keyword-only rows and Search never takes the vector branch.
func New(db *store.DB, embed Embedder) *Engine {
	return &Engine{store: db, embed: embed}
}

// Result is one ranked memory returned from Search, carrying the final
// fused score plus enough raw signal to explain it.
type Result struct {
	store.Memory
	Score float64
}

// Store persists a new memory, computing its embedding when an embedder is
// configured. Embedding failures are logged and degrade to a keyword-only
// row rather than failing the write — a memory worth keeping is worth
// keeping even un-embedded.
func (e *Engine) Store(ctx context.Context, agentID, content, category string, importance int) (int64, error) {
	m := store.Memory{
		AgentID:    agentID,
		Content:    content,
		Category:   category,
		Importance: importance,
	}

	if e.embed != nil {
		vec, err := e.embed.Embed(ctx, content)
		if err != nil {
			slog.Warn("memory: embedding failed, storing keyword-only", "error", err)
		} else {
			m.Embedding = vec
		}
	}

	return e.store.Memory.Store(m)
}

// Search returns up to k memories relevant to query, scoped to agentID plus
// global memories ("" searches every agent's memories). threshold filters out low-confidence
// fused scores; pass 0 to disable filtering.
func (e *Engine) Search(ctx context.Context, agentID, query string, k int, threshold float64) ([]Result, error) {
	if k <= 0 {
		k = 10
	}

	bm25Rows, err := e.store.Memory.BM25Search(agentID, query, branchFetchLimit)
	if err != nil {
		slog.Warn("memory: bm25 search failed", "error", err)
	}

	var vectorRows []store.ScoredMemory
	if e.embed != nil {
		if qVec, err := e.embed.Embed(ctx, query); err == nil {
			candidates, err := e.store.Memory.VectorCandidates(agentID, branchFetchLimit)
			if err != nil {
				slog.Warn("memory: vector candidate fetch failed", "error", err)
			}
			for _, c := range candidates {
				sim := cosineSimilarity(qVec, c.Embedding)
				if sim >= vectorThreshold {
					vectorRows = append(vectorRows, store.ScoredMemory{Memory: c, Score: sim})
				}
			}
		} else {
			slog.Warn("memory: query embedding failed, falling back to bm25-only", "error", err)
		}
	}

	if len(bm25Rows) == 0 && len(vectorRows) == 0 {
		return e.substringFallback(agentID, query, k)
	}

	merged := fuse(bm25Rows, vectorRows)
	applyDecay(merged)

	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	if threshold > 0 {
		filtered := merged[:0]
		for _, r := range merged {
			if r.Score >= threshold {
				filtered = append(filtered, r)
			}
		}
		merged = filtered
	}

	ranked := mmrRerank(merged, k)
	for _, r := range ranked {
		_ = e.store.Memory.Touch(r.ID)
	}
	return ranked, nil
}

// Get fetches a single memory by ID, scoped to agentID, and marks it
// accessed.
func (e *Engine) Get(id int64, agentID string) (Result, error) {
	m, err := e.store.Memory.Get(id, agentID)
	if err != nil {
		return Result{}, err
	}
	_ = e.store.Memory.Touch(id)
	return Result{Memory: m}, nil
}

func (e *Engine) substringFallback(agentID, query string, k int) ([]Result, error) {
	rows, err := e.store.Memory.SubstringSearch(agentID, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(rows))
	for i, m := range rows {
		out[i] = Result{Memory: m, Score: 0}
	}
	return out, nil
}

// fuse min-max normalizes the BM25 branch (SQLite reports more-negative as
// more relevant, so scores are inverted first) and combines it with the
// vector branch's cosine similarities (already in [0,1]) via a weighted sum.
// A memory present in only one branch is scored on that branch alone.
func fuse(bm25Rows, vectorRows []store.ScoredMemory) []Result {
	byID := make(map[int64]*Result)

	if len(bm25Rows) > 0 {
		// Invert sign first: FTS5 bm25() is more negative for better matches.
		min, max := math.MaxFloat64, -math.MaxFloat64
		for _, r := range bm25Rows {
			inv := -r.Score
			if inv < min {
				min = inv
			}
			if inv > max {
				max = inv
			}
		}
		for _, r := range bm25Rows {
			inv := -r.Score
			norm := normalize(inv, min, max)
			res := &Result{Memory: r.Memory, Score: norm * bm25Weight}
			byID[r.ID] = res
		}
	}

	for _, r := range vectorRows {
		if existing, ok := byID[r.ID]; ok {
			existing.Score += r.Score * vectorWeight
		} else {
			byID[r.ID] = &Result{Memory: r.Memory, Score: r.Score * vectorWeight}
		}
	}

	out := make([]Result, 0, len(byID))
	for _, r := range byID {
		out = append(out, *r)
	}
	return out
}

func normalize(v, min, max float64) float64 {
	if max <= min {
		return 1
	}
	return (v - min) / (max - min)
}

// applyDecay multiplies each score by exp(-ln(2) * age_days / halfLife), so
// a memory's relevance halves every 30 days since it was last accessed.
func applyDecay(results []Result) {
	now := time.Now()
	for i := range results {
		ageDays := now.Sub(results[i].AccessedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		decay := math.Exp(-math.Ln2 * ageDays / decayHalfLifeDays)
		results[i].Score *= decay
	}
}

// mmrRerank greedily selects up to k results balancing relevance against
// diversity: each pick is penalized by its Jaccard similarity to the most
// similar result already chosen, weighted by (1 - mmrLambda).
func mmrRerank(candidates []Result, k int) []Result {
	if len(candidates) <= k {
		return candidates
	}

	selected := make([]Result, 0, k)
	remaining := append([]Result(nil), candidates...)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := -math.MaxFloat64
		for i, cand := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				sim := jaccardSimilarity(cand.Content, sel.Content)
				if sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := mmrLambda*cand.Score - (1-mmrLambda)*maxSim
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()[]{}")
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Backfill computes embeddings for memories stored before an embedder was
// configured (or written while one was briefly unavailable), in bounded
// batches so it never holds the store under a long-running scan.
func (e *Engine) Backfill(ctx context.Context) (int, error) {
	if e.embed == nil {
		return 0, nil
	}

	total := 0
	for {
		rows, err := e.store.Memory.WithoutEmbedding(backfillBatchSize)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			return total, nil
		}

		for _, m := range rows {
			vec, err := e.embed.Embed(ctx, m.Content)
			if err != nil {
				slog.Warn("memory: backfill embed failed", "id", m.ID, "error", err)
				continue
			}
			if err := e.store.Memory.SetEmbedding(m.ID, vec); err != nil {
				slog.Warn("memory: backfill set embedding failed", "id", m.ID, "error", err)
				continue
			}
			total++

			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(backfillDelay):
			}
		}
	}
}
