package run

import (
	"context"
	"log"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/pipeline"
)

// executeSession runs every unit in order on the worker goroutine that
// owns the session. Fail-fast: a unit failure aborts all remaining units.
func (s *Service) executeSession(ctx context.Context, sess *Session, units []pipeline.Unit, ch chan Event) {
	defer func() {
		s.release(sess)
		close(ch)
		s.broker.ScheduleCleanup(sess.ID())
	}()

	for _, unit := range units {
		if ctx.Err() != nil {
			s.finishCancelled(sess, unit.Name(), ch)
			return
		}

		name := unit.Name()
		sess.setStepStatus(name, StepRunning, "")
		publish(ch, Event{SessionID: sess.ID(), Step: name, Kind: EventStatus, Status: StepRunning})
		log.Printf("run %s: unit %s started", sess.ID(), name)

		onLog := func(line string) {
			sess.appendLog(name, line)
			publish(ch, Event{SessionID: sess.ID(), Step: name, Kind: EventLog, Log: line})
		}

		summary, err := unit.Run(ctx, onLog)
		if err != nil {
			if ctx.Err() != nil {
				s.finishCancelled(sess, name, ch)
				return
			}
			sess.setStepStatus(name, StepFailed, err.Error())
			publish(ch, Event{SessionID: sess.ID(), Step: name, Kind: EventStatus, Status: StepFailed, Message: err.Error()})
			sess.setState(StateFailed)
			publish(ch, Event{SessionID: sess.ID(), Step: name, Kind: EventError, Message: err.Error()})
			log.Printf("run %s: unit %s failed: %v", sess.ID(), name, err)
			return
		}

		sess.setStepStatus(name, StepCompleted, summary)
		publish(ch, Event{SessionID: sess.ID(), Step: name, Kind: EventStatus, Status: StepCompleted, Message: summary})
		log.Printf("run %s: unit %s completed", sess.ID(), name)
	}

	sess.setState(StateCompleted)
	publish(ch, Event{SessionID: sess.ID(), Kind: EventCompleted, Message: "assessment complete, reports available"})
	log.Printf("run %s: completed", sess.ID())
}

// finishCancelled marks the interrupted unit failed with reason
// "cancelled"; units that already completed keep their status.
func (s *Service) finishCancelled(sess *Session, unitName string, ch chan Event) {
	sess.setStepStatus(unitName, StepFailed, "cancelled")
	publish(ch, Event{SessionID: sess.ID(), Step: unitName, Kind: EventStatus, Status: StepFailed, Message: "cancelled"})
	sess.setState(StateCancelled)
	publish(ch, Event{SessionID: sess.ID(), Kind: EventStopped, Message: "assessment stopped"})
	log.Printf("run %s: cancelled at unit %s", sess.ID(), unitName)
}
