package incident

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
)

func TestNew(t *testing.T) {
	session := uuid.New()

	t.Run("protocol violation", func(t *testing.T) {
		inc := New(session, game.Violation("STAKE", game.ErrNotAuthorized), "STAKE 300", nil)
		assert.Equal(t, game.FaultProtocol, inc.Kind)
		assert.Equal(t, "STAKE 300", inc.Detail)
		assert.False(t, inc.Blocking())
	})

	t.Run("invariant violation keeps its history", func(t *testing.T) {
		err := fmt.Errorf("task MoveNext: %w", &game.InvariantViolation{What: "chooser pointer 4 outside [0,3)", History: []string{"a", "b"}})
		inc := New(session, err, "", []string{"ignored"})
		assert.Equal(t, game.FaultInvariant, inc.Kind)
		assert.Equal(t, []string{"a", "b"}, inc.History)
		assert.True(t, inc.Blocking())
	})

	t.Run("unknown error", func(t *testing.T) {
		inc := New(session, errors.New("boom"), "", []string{"x"})
		assert.Equal(t, game.FaultPanic, inc.Kind)
		assert.Equal(t, []string{"x"}, inc.History)
		assert.Equal(t, session, inc.SessionID)
	})
}
