package dining

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBeginner struct {
	opts pgx.TxOptions
}

func (b *recordingBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = opts
	return nil, errors.New("no database")
}

func TestSessionTxIsReadCommitted(t *testing.T) {
	begin := &recordingBeginner{}
	repo := &repository{beginner: begin}

	called := false
	err := repo.WithTx(context.Background(), func(context.Context, TxRepository) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, pgx.ReadCommitted, begin.opts.IsoLevel)
}
