package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/surplus-backend/pkg/db/dbtest"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Dairy & Eggs":      "dairy-eggs",
		"  Fresh Produce  ": "fresh-produce",
		"--Snacks!!":        "snacks",
		"***":               "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateDerivesSlugAndRejectsDuplicates(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCategoryInput{Name: "Frozen Foods"})
	require.NoError(t, err)
	require.Equal(t, "frozen-foods", created.Slug)
	require.True(t, created.IsActive)

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Frozen Foods", Slug: "frozen-2"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "Frozen", Slug: "Frozen Foods"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.Create(ctx, CreateCategoryInput{Name: "   "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListOnlyActiveSortedByName(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Create(&models.Category{Name: "Bakery", Slug: "bakery", IsActive: true}).Error)
	require.NoError(t, conn.Create(&models.Category{Name: "Archived", Slug: "archived", IsActive: false}).Error)
	require.NoError(t, conn.Create(&models.Category{Name: "Apples", Slug: "apples", IsActive: true}).Error)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Apples", list[0].Name)
	require.Equal(t, "Bakery", list[1].Name)
}

func TestGetAndExists(t *testing.T) {
	conn := dbtest.Open(t)
	category := dbtest.MustCreateCategory(t, conn)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	got, err := svc.Get(ctx, category.ID)
	require.NoError(t, err)
	require.Equal(t, category.Slug, got.Slug)

	_, err = svc.Get(ctx, uuid.New())
	require.Equal(t, pkgerrors.KindNotFound, pkgerrors.KindOf(err))

	ok, err := svc.Exists(ctx, category.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = svc.Exists(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}
