package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"sync/atomic"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

const (
	gcsChunkDays   = 100
	gcsUploadLimit = 8
)

// GCS stores the simulation as JSON objects in a bucket. Days are written in
// chunks under a per-simulation folder; the summary object is written last
// with a does-not-exist precondition, which makes Store create-once even
// across processes.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *slog.Logger

	summary atomic.Pointer[SummaryRecord]
}

// NewGCS creates a client using application default credentials.
func NewGCS(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
		logger: logger,
	}, nil
}

func (g *GCS) summaryObject() string {
	return path.Join(g.prefix, "summary.json")
}

func (g *GCS) chunkObject(id string, chunk int) string {
	return path.Join(g.prefix, id, "days", fmt.Sprintf("%05d.json", chunk))
}

func (g *GCS) Store(ctx context.Context, s *simulation.Simulation) error {
	exists, err := g.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}

	id := s.ID.String()
	records := dayRecords(s)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(gcsUploadLimit)
	for start := 0; start < len(records); start += gcsChunkDays {
		end := min(start+gcsChunkDays, len(records))
		eg.Go(func() error {
			return g.writeJSON(egCtx, g.bucket.Object(g.chunkObject(id, start/gcsChunkDays)), records[start:end])
		})
	}
	if err := eg.Wait(); err != nil {
		g.removeFolder(ctx, id)
		return err
	}

	rec := NewSummaryRecord(s.Summary)
	obj := g.bucket.Object(g.summaryObject()).If(storage.Conditions{DoesNotExist: true})
	if err := g.writeJSON(ctx, obj, rec); err != nil {
		g.removeFolder(ctx, id)
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return ErrAlreadyExists
		}
		return err
	}

	g.summary.Store(&rec)
	g.logger.Info("simulation stored in gcs", "id", id, "days", len(records), "prefix", g.prefix)
	return nil
}

func (g *GCS) writeJSON(ctx context.Context, obj *storage.ObjectHandle, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", obj.ObjectName(), err)
	}

	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write %s: %w", obj.ObjectName(), err)
	}
	// Close finalizes the upload and reports precondition failures.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", obj.ObjectName(), err)
	}
	return nil
}

func (g *GCS) readJSON(ctx context.Context, name string, v any) error {
	reader, err := g.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader for %s: %w", name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Exists(ctx context.Context) (bool, error) {
	_, err := g.loadSummary(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (g *GCS) loadSummary(ctx context.Context) (*SummaryRecord, error) {
	if rec := g.summary.Load(); rec != nil {
		return rec, nil
	}

	var rec SummaryRecord
	if err := g.readJSON(ctx, g.summaryObject(), &rec); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	g.summary.Store(&rec)
	return &rec, nil
}

func (g *GCS) FetchDay(ctx context.Context, n int) (weather.Day, error) {
	rec, err := g.loadSummary(ctx)
	if err != nil {
		return weather.Day{}, err
	}
	if n < 0 || n >= rec.Horizon {
		return weather.Day{}, dayOutOfRange(n, rec.Horizon)
	}

	var chunk []DayRecord
	if err := g.readJSON(ctx, g.chunkObject(rec.ID.String(), n/gcsChunkDays), &chunk); err != nil {
		return weather.Day{}, err
	}
	i := n % gcsChunkDays
	if i >= len(chunk) || chunk[i].Number != n {
		return weather.Day{}, fmt.Errorf("day %d missing from chunk %d", n, n/gcsChunkDays)
	}
	return chunk[i].Day()
}

func (g *GCS) FetchSummary(ctx context.Context) (simulation.Summary, error) {
	rec, err := g.loadSummary(ctx)
	if err != nil {
		return simulation.Summary{}, err
	}
	return rec.Summary(), nil
}

// Reset deletes every object under the prefix.
func (g *GCS) Reset(ctx context.Context) error {
	if err := g.deleteUnder(ctx, g.prefix+"/"); err != nil {
		return err
	}
	g.summary.Store(nil)
	return nil
}

// removeFolder deletes the days written by a Store that did not complete.
func (g *GCS) removeFolder(ctx context.Context, id string) {
	if err := g.deleteUnder(context.WithoutCancel(ctx), path.Join(g.prefix, id)+"/"); err != nil {
		g.logger.Warn("failed to remove partial simulation", "id", id, "error", err)
	}
}

func (g *GCS) deleteUnder(ctx context.Context, prefix string) error {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		if err := g.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("failed to delete %s: %w", attrs.Name, err)
		}
	}
}

func (g *GCS) Ping(ctx context.Context) error {
	if _, err := g.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket unreachable: %w", err)
	}
	return nil
}

// Close closes the GCS client
func (g *GCS) Close() error {
	return g.client.Close()
}
