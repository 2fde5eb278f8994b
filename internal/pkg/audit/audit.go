// Package audit provides audit logging for sandbox execution, secret
// staging, and policy decisions: who (identity), what (action/resource),
// when, and outcome.
package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// Event represents one audit event (structured for retention/compliance).
type Event struct {
	Time      string `json:"time"` // ISO8601
	Action    string `json:"action"` // "sandbox_execute" | "secret_stage" | "policy_deny" | "policy_allow"
	RequestID string `json:"request_id,omitempty"`
	Identity  string `json:"identity,omitempty"`
	Resource  string `json:"resource,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Outcome   string `json:"outcome"` // "success" | "failure" | "denied"
	Message   string `json:"message,omitempty"`
}

var auditLog = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// LogSandboxExecute records a sandbox execution, identified by its label
// and the backend that ran it.
func LogSandboxExecute(requestID, identity, label, backend, outcome, message string) {
	e := Event{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Action:    "sandbox_execute",
		RequestID: requestID,
		Identity:  identity,
		Resource:  label,
		Backend:   backend,
		Outcome:   outcome,
		Message:   message,
	}
	auditLog.Info("audit", "event", mustMarshal(e))
}

// LogSecretStage records that a secret was staged into a sandbox's
// filesystem. Never pass the secret value itself.
func LogSecretStage(requestID, identity, secretName, outcome, message string) {
	e := Event{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Action:    "secret_stage",
		RequestID: requestID,
		Identity:  identity,
		Resource:  secretName,
		Outcome:   outcome,
		Message:   message,
	}
	auditLog.Info("audit", "event", mustMarshal(e))
}

// LogPolicyDecision records a policy evaluation's outcome for a
// (role, action, resource) triple.
func LogPolicyDecision(requestID, identity, action, resource, decision string) {
	tag := "policy_deny"
	outcome := "denied"
	if decision == "allowed" {
		tag = "policy_allow"
		outcome = "success"
	}
	e := Event{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Action:    tag,
		RequestID: requestID,
		Identity:  identity,
		Resource:  action + ":" + resource,
		Outcome:   outcome,
	}
	auditLog.Info("audit", "event", mustMarshal(e))
}

func mustMarshal(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
