package milvus

import (
	"context"

	"watson-legal-api/internal/application/ingest"
	"watson-legal-api/internal/application/query"
)

// PassageRepository 把向量仓储适配到检索与入库两侧的端口。
type PassageRepository struct {
	repo *Repository
}

// NewPassageRepository 创建段落仓储适配器。
func NewPassageRepository(repo *Repository) *PassageRepository {
	return &PassageRepository{repo: repo}
}

var (
	_ query.VectorSearcher    = (*PassageRepository)(nil)
	_ ingest.VectorRepository = (*PassageRepository)(nil)
)

// SearchPassages 按查询向量召回段落，COSINE 分数换算为 0~1 相似度。
func (r *PassageRepository) SearchPassages(ctx context.Context, queryVector []float32, topK int) ([]query.PassageHit, error) {
	if r == nil || r.repo == nil {
		return nil, query.ErrVectorDisabled
	}

	out, err := r.repo.SearchPassages(ctx, queryVector, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]query.PassageHit, 0, len(out))
	for i := range out {
		v := out[i]
		if v == nil {
			continue
		}
		hits = append(hits, query.PassageHit{
			ID:     v.ID,
			Text:   v.TextContent,
			Source: v.Source,
			Score:  float64(v.Score),
		})
	}
	return hits, nil
}

// EnsureLegalPassagesCollection 确保集合可用。
func (r *PassageRepository) EnsureLegalPassagesCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return ingest.ErrVectorDisabled
	}
	return r.repo.EnsureLegalPassagesCollection(ctx)
}

// DeletePassagesBySource 按来源清理旧段落。
func (r *PassageRepository) DeletePassagesBySource(ctx context.Context, source string) error {
	if r == nil || r.repo == nil {
		return ingest.ErrVectorDisabled
	}
	return r.repo.DeletePassagesBySource(ctx, source)
}

// InsertPassages 写入新段落。
func (r *PassageRepository) InsertPassages(ctx context.Context, passages []*ingest.Passage) error {
	if r == nil || r.repo == nil {
		return ingest.ErrVectorDisabled
	}
	if len(passages) == 0 {
		return nil
	}

	out := make([]*LegalPassage, 0, len(passages))
	for i := range passages {
		p := passages[i]
		if p == nil {
			continue
		}
		out = append(out, &LegalPassage{
			ID:          p.ID,
			Vector:      p.Vector,
			Source:      p.Source,
			Title:       p.Title,
			ChunkSeq:    int64(p.ChunkSeq),
			TextContent: p.Text,
		})
	}
	return r.repo.InsertPassages(ctx, out)
}
