package orchestrator

import (
	"strconv"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/question"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

func (o *Orchestrator) startQuestion(q *rules.Question) {
	s := o.state
	if q == nil {
		o.collaboratorFailure("rules engine", rules.ErrNoActiveContent)
		o.schedule(taskMoveNext, 0, s.Policy.RandomFallbackDelay)
		return
	}
	s.ResetQuestion()
	o.settle()
	o.question = q
	s.ThemeName = q.ThemeName
	s.QuestionType = string(q.Type)
	s.Price = q.Price
	s.Question.Options = append([]string(nil), q.Options...)
	o.notify(notification.EventQuestion, map[string]any{
		"theme": q.ThemeName,
		"price": q.Price,
		"type":  q.Type,
	})

	delay := s.Policy.ContentDelay
	switch q.Type {
	case rules.QuestionStake:
		o.startAuction()
	case rules.QuestionSecret:
		o.schedule(taskAskCatGiving, 0, delay)
	case rules.QuestionNoRisk:
		if !s.Chooser.IsSet() {
			o.skipQuestion()
			return
		}
		s.Answerer = s.Chooser
		s.Question.SetAnswerers(s.Chooser.Index())
		o.notify(notification.EventAnswerer, map[string]any{"player": s.Chooser.Index()})
		o.schedule(taskContent, 0, delay)
	case rules.QuestionForAll:
		var answerers []int
		for i, p := range s.Players {
			if !p.Free() && p.Score > 0 {
				answerers = append(answerers, i)
			}
		}
		if len(answerers) == 0 {
			o.skipQuestion()
			return
		}
		s.Question.SetAnswerers(answerers...)
		o.schedule(taskContent, 0, delay)
	case rules.QuestionFinal:
		o.startFinalStakes()
	default:
		o.schedule(taskContent, 0, delay)
	}
}

// showContent renders fragment i, then schedules the next one.
func (o *Orchestrator) showContent(i int) {
	s := o.state
	q := o.question
	if q == nil {
		o.schedule(taskMoveNext, 0, 1)
		return
	}
	if i >= len(q.Content) {
		o.afterContent()
		return
	}
	f := q.Content[i]
	s.Question.Fragment = i
	o.notify(notification.EventContent, map[string]any{
		"index":    i,
		"kind":     f.Kind,
		"value":    f.Value,
		"duration": f.Duration,
	})
	if !f.Media() {
		o.schedule(taskContent, i+1, s.Policy.ContentDelayFor(f.Value))
		return
	}

	humans := len(s.ConnectedHumans())
	if humans == 0 {
		delay := f.Duration
		if delay <= 0 {
			delay = s.Policy.ContentDelay
		}
		o.schedule(taskContent, i+1, delay)
		return
	}
	s.Question.ExpectMedia(humans)
	o.startTimer(game.TimerMedia, s.Policy.MediaAckTimeout)
	o.schedule(taskContent, i+1, s.Policy.MediaAckTimeout)
}

// mediaDone is called once every participant acknowledged the media.
func (o *Orchestrator) mediaDone() {
	o.state.Question.StopMedia()
	o.stopTimer(game.TimerMedia)
	o.Stop(game.StopWait)
}

func (o *Orchestrator) afterContent() {
	s := o.state
	q := o.question
	s.Question.StopMedia()
	o.stopTimer(game.TimerMedia)
	if len(q.Options) > 0 && !s.Question.OptionsShown {
		s.Question.OptionsShown = true
		o.notify(notification.EventOptions, q.Options)
	}
	switch q.Type {
	case rules.QuestionSimple:
		o.askToPress()
	case rules.QuestionForAll, rules.QuestionFinal:
		o.askAnswerAll()
	default:
		o.askAnswer()
	}
}

func (o *Orchestrator) pressers() []int {
	var out []int
	for i, p := range o.state.Players {
		if p.Active() && p.CanPress {
			out = append(out, i)
		}
	}
	return out
}

func (o *Orchestrator) askToPress() {
	s := o.state
	if len(o.pressers()) == 0 {
		o.schedule(taskShowRight, 0, 1)
		return
	}
	s.Question.ButtonsOpen = true
	s.Waiting = true
	o.notify(notification.EventTry, nil)
	o.schedule(taskWaitTry, 0, s.Policy.ButtonPressTime)
}

func (o *Orchestrator) tryTimeout() {
	s := o.state
	s.Question.ButtonsOpen = false
	s.Waiting = false
	o.notify(notification.EventEndTry, map[string]any{"player": -1})
	o.schedule(taskShowRight, 0, 1)
}

// press handles a button press from player i.
func (o *Orchestrator) press(in Press, i int) error {
	s := o.state
	p := s.Players[i]
	now := o.now()
	if !s.Question.ButtonsOpen {
		if s.Options.FalseStarts && o.question != nil && o.question.Type == rules.QuestionSimple && !s.Question.AnswerShown {
			p.BlockedUntil = now.Add(scheduler.Deciseconds(s.Policy.FalseStartBlock).Duration())
			o.notify(notification.EventPass, map[string]any{"player": i, "falseStart": true})
			return nil
		}
		return game.Violation(in.Verb, game.ErrUnexpected, "buttons closed")
	}
	if s.Decision != game.DecisionNone {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if !p.CanPress {
		return game.Violation(in.Verb, game.ErrUnexpected, "already answered")
	}
	if now.Before(p.BlockedUntil) {
		return nil
	}
	s.Question.ButtonsOpen = false
	s.Answerer = game.Pointer(i)
	p.CanPress = false
	o.Stop(game.StopAnswer)
	return nil
}

func (o *Orchestrator) pass(in Pass, i int) error {
	s := o.state
	p := s.Players[i]
	if !s.Question.ButtonsOpen || !p.CanPress {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	p.CanPress = false
	o.notify(notification.EventPass, map[string]any{"player": i})
	if len(o.pressers()) == 0 {
		o.Stop(game.StopWait)
	}
	return nil
}

// beginAnswer runs after the press window was frozen for the answerer.
func (o *Orchestrator) beginAnswer() {
	s := o.state
	o.notify(notification.EventEndTry, map[string]any{"player": s.Answerer.Index()})
	s.Question.SetAnswerers(s.Answerer.Index())
	o.askAnswer()
}

func (o *Orchestrator) askAnswer() {
	s := o.state
	p := s.At(s.Answerer)
	if p == nil {
		o.schedule(taskShowRight, 0, 1)
		return
	}
	if len(s.Question.Answerers) == 0 {
		s.Question.SetAnswerers(s.Answerer.Index())
	}
	p.Answer = ""
	p.Answered = false
	o.expect(game.DecisionAnswering)
	o.startTimer(game.TimerThinking, s.Policy.ThinkingTime)
	o.notify(notification.EventAnswerer, map[string]any{"player": s.Answerer.Index(), "name": p.Name})
	delay := s.Policy.ThinkingTime
	if !p.Active() {
		delay = s.Policy.RandomFallbackDelay
	}
	o.schedule(taskWaitAnswer, 0, delay)
}

func (o *Orchestrator) askAnswerAll() {
	s := o.state
	if len(s.Question.Answerers) == 0 {
		o.schedule(taskShowRight, 0, 1)
		return
	}
	var names []string
	for _, a := range s.Question.Answerers {
		p := s.Players[a]
		p.Answer = ""
		p.Answered = false
		names = append(names, p.Name)
	}
	o.expect(game.DecisionAnswering)
	think := s.Policy.ThinkingTime
	if o.question.Type == rules.QuestionFinal {
		think = s.Policy.FinalThinkingTime
	}
	o.startTimer(game.TimerThinking, think)
	o.notify(notification.EventAnswerer, map[string]any{"players": s.Question.Answerers, "names": names})
	o.schedule(taskWaitAnswer, 0, think)
}

func (o *Orchestrator) answer(in Answer, i int) error {
	s := o.state
	p := s.Players[i]
	if s.Decision != game.DecisionAnswering || !s.Question.IsAnswerer(i) {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if p.Answered {
		return game.Violation(in.Verb, game.ErrUnexpected, "already answered")
	}
	p.Answer = in.Text
	p.Answered = true
	if !s.Question.Multi() {
		o.notify(notification.EventAnswer, map[string]any{"player": i, "answer": in.Text})
	}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) allAnswered() bool {
	for _, a := range o.state.Question.Answerers {
		if !o.state.Players[a].Answered {
			return false
		}
	}
	return true
}

func (o *Orchestrator) answerTimeout() {
	o.stopTimer(game.TimerThinking)
	for _, a := range o.state.Question.Answerers {
		p := o.state.Players[a]
		if !p.Answered {
			p.Answered = true
			p.Answer = ""
		}
	}
	o.validateAnswers()
}

// validateAnswers judges what can be judged automatically and queues the
// rest for the showman.
func (o *Orchestrator) validateAnswers() {
	s := o.state
	s.Waiting = false
	human := o.showmanAvailable()
	for _, a := range s.Question.Answerers {
		ans := s.Players[a].Answer
		if _, ok := s.Question.Verdict(ans); ok {
			continue
		}
		if right, ok := o.autoVerdict(ans); ok {
			s.Question.Judge(ans, right)
			continue
		}
		if human {
			s.Question.Enqueue(ans)
			continue
		}
		s.Question.Judge(ans, false)
	}
	o.askValidation()
}

func (o *Orchestrator) autoVerdict(ans string) (right, ok bool) {
	q := o.question
	key := question.Normalize(ans)
	if key == "" {
		return false, true
	}
	if len(q.Options) > 0 {
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(q.Options) {
			key = question.Normalize(q.Options[n-1])
		}
		for _, r := range q.Right {
			if question.Normalize(r) == key {
				return true, true
			}
		}
		return false, true
	}
	for _, r := range q.Right {
		if question.Normalize(r) == key {
			return true, true
		}
	}
	for _, w := range q.Wrong {
		if question.Normalize(w) == key {
			return false, true
		}
	}
	return false, false
}

func (o *Orchestrator) askValidation() {
	s := o.state
	key, ok := s.Question.NextPending()
	if !ok {
		o.applyVerdicts()
		return
	}
	o.validating = key
	o.expect(game.DecisionAnswerValidating)
	o.notify(notification.EventValidation, map[string]any{
		"answer": key,
		"right":  o.question.Right,
		"wrong":  o.question.Wrong,
	}, s.Showman.Name)
	o.schedule(taskWaitRight, 0, s.Policy.ValidationTime)
}

func (o *Orchestrator) judge(right bool) {
	o.state.Question.Judge(o.validating, right)
	o.validating = ""
	o.askValidation()
}

func (o *Orchestrator) validationTimeout() {
	o.judge(false)
}

// applyVerdicts moves scores for every answerer and decides what follows.
func (o *Orchestrator) applyVerdicts() {
	s := o.state
	o.settle()
	multi := s.Question.Multi()
	anyRight := false
	for _, a := range s.Question.Answerers {
		p := s.Players[a]
		right, _ := s.Question.Verdict(p.Answer)
		delta := o.delta(right, o.stakeOf(a))
		p.Score += delta
		s.Question.Record(a, p.Answer, right, delta)
		o.notify(notification.EventPerson, map[string]any{"player": a, "answer": p.Answer, "right": right, "delta": delta})
		if right {
			anyRight = true
			if !multi {
				s.Chooser = game.Pointer(a)
			}
		}
	}
	o.notifyScores()
	s.Question.AppealOpen = s.Options.Appellations && len(s.Question.History) > 0

	if o.question.Type == rules.QuestionSimple && !anyRight {
		s.Answerer = game.NoPlayer
		s.Question.SetAnswerers()
		if len(o.pressers()) > 0 {
			if _, ok := o.sched.Resume(0); ok {
				s.Question.ButtonsOpen = true
				s.Waiting = true
				o.notify(notification.EventTry, map[string]any{"resumed": true})
				return
			}
		}
	}
	o.sched.DropPaused()
	o.schedule(taskShowRight, 0, s.Policy.ContentDelay)
}

// delta is the score change of one verdict at price.
func (o *Orchestrator) delta(right bool, price int) int {
	if o.question != nil && o.question.Type == rules.QuestionNoRisk {
		if right {
			return 2 * price
		}
		return 0
	}
	if right {
		return price
	}
	if o.state.Options.IgnoreWrong {
		return 0
	}
	return -price
}

func (o *Orchestrator) stakeOf(player int) int {
	if o.question != nil && o.question.Type == rules.QuestionFinal {
		return o.state.Players[player].Stake
	}
	return o.state.Price
}

func (o *Orchestrator) showRight() {
	s := o.state
	s.Question.AnswerShown = true
	s.Question.ButtonsOpen = false
	o.settle()
	o.stopTimer(game.TimerThinking)
	o.stopTimer(game.TimerMedia)
	if q := o.question; q != nil {
		o.notify(notification.EventRightAnswer, map[string]any{"right": q.Right, "comment": q.Comment})
	}
	delay := s.Policy.ContentDelay
	if s.Question.AppealOpen {
		delay += s.Policy.AppellationWindow
	}
	o.schedule(taskQuestionEnd, 0, delay)
}

func (o *Orchestrator) questionEnd() {
	s := o.state
	s.Question.AppealOpen = false
	o.settle()
	o.notify(notification.EventQuestionEnd, nil)
	o.schedule(taskMoveNext, 0, 1)
}

// skipQuestion abandons the current question without a verdict.
func (o *Orchestrator) skipQuestion() {
	if err := o.engine.SkipQuestion(); err != nil {
		o.logger.Debug().Err(err).Msg("skip question")
	}
	o.sched.DropPaused()
	o.settle()
	o.state.Question.AppealOpen = false
	o.schedule(taskQuestionEnd, 0, o.state.Policy.ContentDelay)
}

func (o *Orchestrator) notifyScores() {
	o.notify(notification.EventScores, o.state.Scores())
}
