package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
	"github.com/The-Politico/crosswalk/storage"
)

func TestDomainStore_CreateSlugifiesName(t *testing.T) {
	_, domains := newStores(t)

	d, err := domains.Create(context.Background(), "State Lawmakers 2018", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "state-lawmakers-2018", d.Slug)
	assert.Equal(t, "State Lawmakers 2018", d.Name)
	assert.Nil(t, d.Parent)
}

func TestDomainStore_SlugCollisionDisambiguates(t *testing.T) {
	_, domains := newStores(t)
	ctx := context.Background()

	// Distinct names that slugify identically
	first, err := domains.Create(ctx, "Acme Corp", nil, nil)
	require.NoError(t, err)
	second, err := domains.Create(ctx, "Acme, Corp!", nil, nil)
	require.NoError(t, err)
	third, err := domains.Create(ctx, "Acme Corp.", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "acme-corp", first.Slug)
	assert.Equal(t, "acme-corp-2", second.Slug)
	assert.Equal(t, "acme-corp-3", third.Slug)
}

func TestDomainStore_DuplicateNameConflicts(t *testing.T) {
	_, domains := newStores(t)
	ctx := context.Background()

	_, err := domains.Create(ctx, "Companies", nil, nil)
	require.NoError(t, err)

	_, err = domains.Create(ctx, "Companies", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
}

func TestDomainStore_GetBySlugNotFound(t *testing.T) {
	_, domains := newStores(t)

	_, err := domains.GetBySlug(context.Background(), "no-such-domain")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestDomainStore_GetOrCreate(t *testing.T) {
	_, domains := newStores(t)
	ctx := context.Background()

	d1, err := domains.GetOrCreate(ctx, "Companies", nil, nil)
	require.NoError(t, err)
	d2, err := domains.GetOrCreate(ctx, "Companies", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, d1.Slug, d2.Slug)

	all, err := domains.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDomainStore_ParentMustExist(t *testing.T) {
	_, domains := newStores(t)
	ctx := context.Background()

	missing := "no-such-parent"
	_, err := domains.Create(ctx, "Subsidiaries", &missing, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))

	parent, err := domains.Create(ctx, "Companies", nil, nil)
	require.NoError(t, err)

	child, err := domains.Create(ctx, "Subsidiaries", &parent.Slug, nil)
	require.NoError(t, err)
	require.NotNil(t, child.Parent)
	assert.Equal(t, "companies", *child.Parent)
}

func TestDomainStore_Reparent(t *testing.T) {
	_, domains := newStores(t)
	ctx := context.Background()

	parent, err := domains.Create(ctx, "Companies", nil, nil)
	require.NoError(t, err)
	child, err := domains.Create(ctx, "Subsidiaries", nil, nil)
	require.NoError(t, err)

	require.NoError(t, domains.Reparent(ctx, child.Slug, &parent.Slug))

	fetched, err := domains.GetBySlug(ctx, child.Slug)
	require.NoError(t, err)
	require.NotNil(t, fetched.Parent)
	assert.Equal(t, parent.Slug, *fetched.Parent)

	require.NoError(t, domains.Reparent(ctx, child.Slug, nil))
	fetched, err = domains.GetBySlug(ctx, child.Slug)
	require.NoError(t, err)
	assert.Nil(t, fetched.Parent)
}

func TestDomainStore_DeleteRestrictedWhileNonEmpty(t *testing.T) {
	entities, domains := newStores(t)
	ctx := context.Background()

	d, err := domains.Create(ctx, "Companies", nil, nil)
	require.NoError(t, err)

	created, err := entities.Create(ctx, storage.CreateParams{
		Domain:     d.Slug,
		Attributes: entity.Attributes{"name": "Acme Corp"},
	})
	require.NoError(t, err)

	err = domains.Delete(ctx, d.Slug)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))

	require.NoError(t, entities.Delete(ctx, created.UUID))
	require.NoError(t, domains.Delete(ctx, d.Slug))

	_, err = domains.GetBySlug(ctx, d.Slug)
	assert.True(t, errors.IsNotFoundError(err))
}
