package orchestrator

import (
	"time"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

const (
	taskStartGame       scheduler.Kind = "START_GAME"
	taskMoveNext        scheduler.Kind = "MOVE_NEXT"
	taskWaitFirst       scheduler.Kind = "WAIT_FIRST"
	taskAskToChoose     scheduler.Kind = "ASK_TO_CHOOSE"
	taskWaitChoose      scheduler.Kind = "WAIT_CHOOSE"
	taskContent         scheduler.Kind = "CONTENT"
	taskAskToPress      scheduler.Kind = "ASK_TO_PRESS"
	taskWaitTry         scheduler.Kind = "WAIT_TRY"
	taskAskAnswer       scheduler.Kind = "ASK_ANSWER"
	taskWaitAnswer      scheduler.Kind = "WAIT_ANSWER"
	taskWaitRight       scheduler.Kind = "WAIT_RIGHT"
	taskShowRight       scheduler.Kind = "SHOW_RIGHT"
	taskQuestionEnd     scheduler.Kind = "QUESTION_END"
	taskAskStake        scheduler.Kind = "ASK_STAKE"
	taskWaitStake       scheduler.Kind = "WAIT_STAKE"
	taskWaitNextStaker  scheduler.Kind = "WAIT_NEXT_STAKER"
	taskAskCatGiving    scheduler.Kind = "ASK_CAT_GIVING"
	taskWaitCatGiving   scheduler.Kind = "WAIT_CAT_GIVING"
	taskWaitCatPrice    scheduler.Kind = "WAIT_CAT_PRICE"
	taskWaitDelete      scheduler.Kind = "WAIT_DELETE"
	taskWaitNextDeleter scheduler.Kind = "WAIT_NEXT_DELETER"
	taskWaitFinalStake  scheduler.Kind = "WAIT_FINAL_STAKE"
	taskWaitAppellation scheduler.Kind = "WAIT_APPELLATION"
	taskWaitReport      scheduler.Kind = "WAIT_REPORT"
	taskEndGame         scheduler.Kind = "END_GAME"
	taskPauseHold       scheduler.Kind = "PAUSE_HOLD"
	taskIdle            scheduler.Kind = "IDLE"
)

// executeTask is the scheduler handler. A pending stop reason is served
// first; it may consume the task.
func (o *Orchestrator) executeTask(t scheduler.Task, remaining time.Duration) {
	reason := o.stopReason
	o.stopReason = game.StopNone
	if reason != game.StopNone && o.handleStop(reason, t, remaining) {
		return
	}
	if o.state.Blocked || o.state.Paused {
		return
	}
	o.runTask(t)
}

func (o *Orchestrator) runTask(t scheduler.Task) {
	switch t.Kind {
	case taskStartGame, taskMoveNext:
		o.moveNext()
	case taskWaitFirst:
		o.starterTimeout()
	case taskAskToChoose:
		o.askToChoose()
	case taskWaitChoose:
		o.chooseTimeout()
	case taskContent:
		o.showContent(t.Arg)
	case taskAskToPress:
		o.askToPress()
	case taskWaitTry:
		o.tryTimeout()
	case taskAskAnswer:
		o.askAnswer()
	case taskWaitAnswer:
		o.answerTimeout()
	case taskWaitRight:
		o.validationTimeout()
	case taskShowRight:
		o.showRight()
	case taskQuestionEnd:
		o.questionEnd()
	case taskAskStake:
		o.askStake(t.Arg == 1)
	case taskWaitStake:
		o.stakeTimeout()
	case taskWaitNextStaker:
		o.nextStakerTimeout()
	case taskAskCatGiving:
		o.askCatGiving()
	case taskWaitCatGiving:
		o.catGivingTimeout()
	case taskWaitCatPrice:
		o.catPriceTimeout()
	case taskWaitDelete:
		o.deleteTimeout()
	case taskWaitNextDeleter:
		o.nextDeleterTimeout()
	case taskWaitFinalStake:
		o.finalStakeTimeout()
	case taskWaitAppellation:
		o.appellationTimeout()
	case taskWaitReport:
		o.finishGame()
	case taskEndGame:
		o.endGame()
	case taskPauseHold, taskIdle:
	default:
		o.logger.Warn().Str("task", string(t.Kind)).Msg("unknown task")
	}
}

// handleStop serves one interrupt against the task t that was pending. It
// returns true when the task must not run.
func (o *Orchestrator) handleStop(reason game.StopReason, t scheduler.Task, remaining time.Duration) bool {
	switch reason {
	case game.StopPause:
		o.togglePause(t, remaining)
		return true

	case game.StopDecision:
		if o.state.Paused {
			o.decisionDuringPause = true
			return true
		}
		if !o.onDecision() {
			o.requeue(t, remaining)
		}
		return true

	case game.StopAnswer:
		o.sched.Pause(scheduler.Task{})
		o.beginAnswer()
		return true

	case game.StopAppellation:
		o.openAppellation()
		return true

	case game.StopMove:
		return o.onMove(t)

	case game.StopWait:
		return false
	}
	return false
}

// requeue puts t back with the time it had left.
func (o *Orchestrator) requeue(t scheduler.Task, remaining time.Duration) {
	if t.Kind == taskIdle || t.Kind == taskPauseHold {
		return
	}
	o.sched.Schedule(t, scheduler.FromDuration(remaining), false)
}
