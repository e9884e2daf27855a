package response

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docmind/internal/pkg/errcode"
	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("get doc: %w", appErr.ErrNotFound), errcode.ErrNotFound},
		{appErr.ErrInvalid, errcode.ErrInvalid},
		{fmt.Errorf("upsert: %w", appErr.ErrConflict), errcode.ErrConflict},
		{fmt.Errorf("index: %w", appErr.ErrUnavailable), errcode.ErrUnavailable},
		{fmt.Errorf("boom"), errcode.ErrInternal},
	}
	for _, tt := range tests {
		code, _ := FromError(tt.err)
		require.Equal(t, tt.code, code, tt.err.Error())
	}
}
