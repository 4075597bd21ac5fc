package template_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-sender/internal/envelope"
	"github.com/hal9000y/gmail-sender/internal/kvstore"
	"github.com/hal9000y/gmail-sender/internal/template"
)

func TestLoadNotConfigured(t *testing.T) {
	store := template.NewStore(kvstore.NewMemory(0))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, template.ErrNotConfigured)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := template.NewStore(kvstore.NewMemory(0))

	cfg := &template.Config{
		Subject: "Monthly report",
		Body:    "Please find the report attached.",
		Attachment: &envelope.Attachment{
			Filename: "report.pdf",
			MIMEType: "application/pdf",
			Data:     "cGRmLWJ5dGVz",
		},
	}

	require.NoError(t, store.Save(ctx, cfg))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := template.NewStore(kvstore.NewMemory(0))

	require.NoError(t, store.Save(ctx, &template.Config{Subject: "Old", Body: "old"}))
	require.NoError(t, store.Save(ctx, &template.Config{Subject: "New", Body: "new"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "New", loaded.Subject)
	assert.Nil(t, loaded.Attachment)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := template.NewStore(kvstore.NewMemory(0))

	require.NoError(t, store.Save(ctx, &template.Config{Subject: "Hi", Body: "Hello"}))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, template.ErrNotConfigured)
}

func TestSaveQuotaSurfaces(t *testing.T) {
	ctx := context.Background()
	store := template.NewStore(kvstore.NewMemory(10))

	err := store.Save(ctx, &template.Config{Subject: "Hi", Body: "Hello"})
	require.ErrorIs(t, err, kvstore.ErrQuotaExceeded)
}
