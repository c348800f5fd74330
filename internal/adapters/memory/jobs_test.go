package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/urbanlens/urbanlens/internal/adapters/memory"
	"github.com/urbanlens/urbanlens/internal/core/domain"
)

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()

	job := domain.NewJob("Denver", 2020, []domain.DatasetKind{domain.KindNDVI})
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Place != "Denver" || got.State != domain.StateReceived {
		t.Errorf("got %+v", got)
	}

	if err := repo.Create(ctx, job); err == nil {
		t.Error("duplicate create must fail")
	}
}

func TestGet_CopiesJob(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := domain.NewJob("Denver", 2020, []domain.DatasetKind{domain.KindNDVI})
	repo.Create(ctx, job)

	got, _ := repo.Get(ctx, job.ID)
	got.State = domain.StateFailed
	got.Results[domain.KindNDVI] = &domain.DatasetResult{Kind: domain.KindNDVI}
	got.Failures[domain.KindTreeCover] = "boom"
	got.Requested[0] = domain.KindPopulation

	again, _ := repo.Get(ctx, job.ID)
	if again.State != domain.StateReceived {
		t.Errorf("mutation through a returned copy leaked into the store: %s", again.State)
	}
	if len(again.Results) != 0 || len(again.Failures) != 0 {
		t.Errorf("stored job shares maps with a returned copy: results=%v failures=%v",
			again.Results, again.Failures)
	}
	if again.Requested[0] != domain.KindNDVI {
		t.Errorf("stored job shares the requested slice: %v", again.Requested)
	}
}

func TestStore_DetachesFromLiveJob(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := domain.NewJob("Denver", 2020, []domain.DatasetKind{domain.KindNDVI, domain.KindPopulation})
	repo.Create(ctx, job)

	// The pipeline keeps writing into its live job after every store;
	// readers polling the status endpoint must only ever see detached
	// snapshots.
	job.BBox = &domain.BoundingBox{MinLat: 1, MaxLat: 2, MinLon: 3, MaxLon: 4}
	repo.Update(ctx, job)
	job.BBox.MaxLat = 99
	job.Results[domain.KindNDVI] = &domain.DatasetResult{Kind: domain.KindNDVI}
	job.Failures[domain.KindPopulation] = "worldpop 503"

	got, _ := repo.Get(ctx, job.ID)
	if got.BBox.MaxLat != 2 {
		t.Errorf("stored job shares the bounding box: %+v", got.BBox)
	}
	if len(got.Results) != 0 || len(got.Failures) != 0 {
		t.Errorf("stored job shares live maps: results=%v failures=%v", got.Results, got.Failures)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			job.Results[domain.KindNDVI] = &domain.DatasetResult{Kind: domain.KindNDVI, Year: i}
			repo.Update(ctx, job)
		}
	}()
	for i := 0; i < 1000; i++ {
		snap, err := repo.Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		for range snap.Results {
		}
		if jobs, err := repo.List(ctx); err != nil || len(jobs) != 1 {
			t.Fatalf("list: %v (%d jobs)", err, len(jobs))
		}
	}
	<-done
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()
	job := domain.NewJob("Denver", 2020, nil)
	repo.Create(ctx, job)

	job.State = domain.StateFetching
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repo.Get(ctx, job.ID)
	if got.State != domain.StateFetching {
		t.Errorf("state = %s", got.State)
	}

	ghost := domain.NewJob("Nowhere", 2020, nil)
	if err := repo.Update(ctx, ghost); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_Missing(t *testing.T) {
	repo := memory.NewJobRepo()
	if _, err := repo.Get(context.Background(), "data_x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepo()

	old := domain.NewJob("A", 2020, nil)
	old.CreatedAt = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	mid := domain.NewJob("B", 2020, nil)
	mid.CreatedAt = time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
	newest := domain.NewJob("C", 2020, nil)
	newest.CreatedAt = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	for _, j := range []*domain.Job{old, newest, mid} {
		if err := repo.Create(ctx, j); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len = %d", len(jobs))
	}
	if jobs[0].Place != "C" || jobs[1].Place != "B" || jobs[2].Place != "A" {
		t.Errorf("order = %s, %s, %s", jobs[0].Place, jobs[1].Place, jobs[2].Place)
	}
}
