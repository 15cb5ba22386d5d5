package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infopulse/internal/domain/entity"
	"infopulse/internal/infra/adapter/persistence/memory"
)

type errStore struct {
	*memory.ArticleRepo
}

func (errStore) FindByURL(context.Context, string) (*entity.Article, error) {
	return nil, errors.New("db down")
}

func TestDuplicateFilter_IsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewArticleRepo()
	require.NoError(t, store.Create(ctx, &entity.Article{Title: "t", URL: "http://x/1", Content: "c", InsertionDate: time.Now()}))
	f := NewDuplicateFilter(store)

	dup, err := f.IsDuplicate(ctx, "http://x/1")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = f.IsDuplicate(ctx, "http://x/2")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDuplicateFilter_StoreError(t *testing.T) {
	f := NewDuplicateFilter(errStore{memory.NewArticleRepo()})

	dup, err := f.IsDuplicate(context.Background(), "http://x/1")
	assert.Error(t, err)
	assert.False(t, dup)
}

func TestDuplicateFilter_ClaimOnce(t *testing.T) {
	f := NewDuplicateFilter(memory.NewArticleRepo())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Claim("http://x/1") {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.True(t, f.Claim("http://x/2"))
}
