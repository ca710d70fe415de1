// Package agent contains the planning strategies that turn a free-text
// goal into tool invocations.
//
// Two planners are provided. ModelAgent drives a chat model in a
// plan/act loop: at every step the model picks ONE tool, observes its
// result and either continues or finishes with an answer. RuleAgent is
// the offline fallback: an ordered table of goal patterns routes the
// goal to exactly one tool, so common requests keep working when no
// model backend is reachable.
//
// Both planners report every outcome, including failures, through a
// RunResult and never panic.
package agent
