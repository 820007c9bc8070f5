// Package wire 负责应用依赖的组装。
package wire

import (
	"context"

	"watson-legal-api/internal/application/query"
	"watson-legal-api/internal/config"
	"watson-legal-api/internal/infrastructure/embedding"
	"watson-legal-api/internal/infrastructure/llm"
	"watson-legal-api/internal/infrastructure/persistence/milvus"
	"watson-legal-api/internal/infrastructure/persistence/redis"
	"watson-legal-api/internal/infrastructure/websearch"
	"watson-legal-api/internal/interfaces/http/handler"
	"watson-legal-api/internal/interfaces/http/router"
	"watson-legal-api/internal/workflow/legalquery"
	"watson-legal-api/pkg/logger"
)

// InitializeApp 组装全部依赖并返回路由器与清理函数。
// Redis 是硬依赖；Milvus 或 Embedding 不可用时服务仍启动，
// 检索阶段按降级路径走网络兜底。
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	cleanups := make([]func(), 0, 2)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Redis（必需）
	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, func() { _ = redisClient.Close() })

	cache := redis.NewCache(redisClient)
	rateLimiter := redis.NewRateLimiter(redisClient)

	// Milvus（可选）
	var milvusClient *milvus.Client
	var vectorSearcher query.VectorSearcher
	if mc, err := milvus.NewClient(ctx, &cfg.Vector.Milvus); err != nil {
		logger.Warn(ctx, "milvus unavailable, local retrieval disabled", "error", err)
	} else {
		milvusClient = mc
		cleanups = append(cleanups, func() { _ = mc.Close() })
		repo := milvus.NewRepository(mc, cfg.Embedding.Dimension)
		vectorSearcher = milvus.NewPassageRepository(repo)
	}

	// Embedding（可选，与 Milvus 配套）
	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedder unavailable, local retrieval disabled", "error", err)
		embedder = nil
	}

	// LLM 工厂
	llmFactory := llm.NewEinoFactory(cfg)

	// 工作流阶段
	retriever := query.NewLocalRetriever(embedder, vectorSearcher)
	scorer := query.NewLLMScorer(
		llmFactory,
		cfg.LLM.DefaultProvider,
		cfg.RAG.ScoreWorkers,
		cfg.RAG.ScoreTimeout,
		cfg.RAG.ScoreDocPrefixRunes,
		cfg.RAG.RelevanceThreshold,
	)
	webSearcher := query.NewFallbackSearcher(websearch.NewTavilyClient(&cfg.WebSearch))
	synthesizer := query.NewLLMSynthesizer(llmFactory, cfg.LLM.DefaultProvider, cfg.RAG.RelevanceThreshold)

	workflow := legalquery.NewWorkflow(retriever, scorer, webSearcher, synthesizer, cfg.RAG.TopK)

	// HTTP 层
	queryHandler := handler.NewQueryHandler(workflow, cache, cfg.RAG.AnswerCacheTTL)
	healthHandler := handler.NewHealthHandler(cfg, redisClient, milvusClient)

	r := router.New(cfg, queryHandler, healthHandler, rateLimiter)
	return r, cleanup, nil
}
