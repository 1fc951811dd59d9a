package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

func TestCategoryList(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, logger.Discard())

	repo.On("List", mock.Anything).Return([]domain.Category{{Slug: "mugs", Name: "Mugs"}}, nil).Once()

	categories, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestCategoryList_Empty(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, logger.Discard())
	repo.On("List", mock.Anything).Return(nil, nil)

	categories, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, categories)
}

func TestCategoryList_StoreFailure(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, logger.Discard())
	repo.On("List", mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	_, err := svc.List(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
}
