// Package main 法律语料入库工具
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	pdf "github.com/ledongthuc/pdf"

	"watson-legal-api/internal/application/ingest"
	"watson-legal-api/internal/config"
	"watson-legal-api/internal/infrastructure/embedding"
	"watson-legal-api/internal/infrastructure/persistence/milvus"
	"watson-legal-api/pkg/logger"
)

func main() {
	dir := flag.String("dir", "", "directory containing legal documents (.pdf/.txt)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()

	if strings.TrimSpace(*dir) == "" {
		logger.Fatal(ctx, "missing -dir flag", fmt.Errorf("document directory is required"))
	}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Fatal(ctx, "failed to connect milvus", err)
	}
	defer milvusClient.Close()

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to create embedder", err)
	}

	repo := milvus.NewRepository(milvusClient, cfg.Embedding.Dimension)
	vectorRepo := milvus.NewPassageRepository(repo)
	indexer := ingest.NewIndexer(
		embedder,
		vectorRepo,
		cfg.Ingest.ChunkSizeRunes,
		cfg.Ingest.ChunkOverlapRunes,
		cfg.Ingest.EmbeddingBatch,
	)

	if err := vectorRepo.EnsureLegalPassagesCollection(ctx); err != nil {
		logger.Fatal(ctx, "failed to prepare collection", err)
	}

	var indexed, failed int
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		var content string
		switch ext {
		case ".pdf":
			content, err = extractPDFText(path)
		case ".txt", ".md":
			content, err = readTextFile(path)
		default:
			return nil
		}
		if err != nil {
			logger.Warn(ctx, "failed to read document, skipping", "path", path, "error", err)
			failed++
			return nil
		}

		source := d.Name()
		title := strings.TrimSuffix(source, filepath.Ext(source))
		chunks, err := indexer.IndexDocument(ctx, source, title, content)
		if err != nil {
			logger.Warn(ctx, "failed to index document, skipping", "path", path, "error", err)
			failed++
			return nil
		}
		logger.Info(ctx, "indexed", "source", source, "chunks", chunks)
		indexed++
		return nil
	})
	if err != nil {
		logger.Fatal(ctx, "ingestion aborted", err)
	}

	logger.Info(ctx, "ingestion finished", "indexed", indexed, "failed", failed)
}

// extractPDFText 提取 PDF 纯文本。
func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	b, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(&buf, b); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
