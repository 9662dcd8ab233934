package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Structural schemas for the three response shapes. Unknown fields are
// tolerated; missing or mistyped required fields fail the call.

const routeDecisionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["recommended", "justification", "scores", "estimatedCost", "alternatives"],
  "properties": {
    "recommended": {"type": "string", "minLength": 1},
    "justification": {"type": "string"},
    "scores": {
      "type": "object",
      "required": ["reasoning", "contextWindow", "codeGeneration", "speed", "cost"],
      "properties": {
        "reasoning": {"type": "number"},
        "contextWindow": {"type": "number"},
        "codeGeneration": {"type": "number"},
        "speed": {"type": "number"},
        "cost": {"type": "number"}
      }
    },
    "estimatedCost": {"type": "number", "minimum": 0},
    "alternatives": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["model", "score"],
        "properties": {
          "model": {"type": "string", "minLength": 1},
          "score": {"type": "number"},
          "tradeoff": {"type": "string"}
        }
      }
    },
    "governance": {"type": "object"}
  }
}`

const telemetrySnapshotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["overall", "models", "adaptiveBonuses", "tierRecommendations",
               "explorationRate", "coldStartThreshold", "collectedAt"],
  "properties": {
    "overall": {
      "type": "object",
      "required": ["totalTasks", "successRate", "avgDurationMs"],
      "properties": {
        "totalTasks": {"type": "integer", "minimum": 0},
        "successRate": {"type": "number", "minimum": 0, "maximum": 1},
        "avgDurationMs": {"type": "number", "minimum": 0}
      }
    },
    "models": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["model", "tasks", "successRate", "avgDurationMs"],
        "properties": {
          "model": {"type": "string", "minLength": 1},
          "tasks": {"type": "integer", "minimum": 0},
          "successRate": {"type": "number", "minimum": 0, "maximum": 1},
          "avgDurationMs": {"type": "number", "minimum": 0}
        }
      }
    },
    "adaptiveBonuses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "model", "bonus"],
        "properties": {
          "category": {"type": "string", "minLength": 1},
          "model": {"type": "string", "minLength": 1},
          "bonus": {"type": "number"},
          "sampleSize": {"type": "integer", "minimum": 0}
        }
      }
    },
    "tierRecommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["tier", "model"],
        "properties": {
          "tier": {"type": "string", "minLength": 1},
          "model": {"type": "string", "minLength": 1},
          "reason": {"type": "string"}
        }
      }
    },
    "learningInsights": {
      "type": "array",
      "items": {"type": "string"}
    },
    "categoryMappings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "recommended", "confidence", "sampleSize"],
        "properties": {
          "category": {"type": "string", "minLength": 1},
          "recommended": {"type": "string", "minLength": 1},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "sampleSize": {"type": "integer", "minimum": 0}
        }
      }
    },
    "explorationRate": {"type": "number", "minimum": 0, "maximum": 1},
    "coldStartThreshold": {"type": "integer", "minimum": 0},
    "collectedAt": {"type": "string", "minLength": 1}
  }
}`

const voteOutcomeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["proposal", "strategy", "decision", "approvalRate", "counts",
               "votes", "durationMs", "simulateVotes"],
  "properties": {
    "proposal": {"type": "string", "minLength": 1},
    "strategy": {
      "type": "string",
      "enum": ["simple-majority", "supermajority", "unanimous", "proof-of-learning", "higher-order"]
    },
    "decision": {
      "type": "string",
      "enum": ["approved", "rejected", "pending", "timeout"]
    },
    "approvalRate": {"type": "number", "minimum": 0, "maximum": 100},
    "counts": {
      "type": "object",
      "required": ["approve", "reject", "abstain", "error"],
      "properties": {
        "approve": {"type": "integer", "minimum": 0},
        "reject": {"type": "integer", "minimum": 0},
        "abstain": {"type": "integer", "minimum": 0},
        "error": {"type": "integer", "minimum": 0}
      }
    },
    "votes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["role", "decision"],
        "properties": {
          "role": {"type": "string", "minLength": 1},
          "decision": {
            "type": "string",
            "enum": ["approved", "rejected", "pending", "timeout"]
          },
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "justification": {"type": "string"},
          "simulated": {"type": "boolean"},
          "error": {"type": "boolean"}
        }
      }
    },
    "durationMs": {"type": "number", "minimum": 0},
    "simulateVotes": {"type": "boolean"}
  }
}`

var (
	routeDecisionCompiled     = jsonschema.MustCompileString("route_decision.json", routeDecisionSchema)
	telemetrySnapshotCompiled = jsonschema.MustCompileString("telemetry_snapshot.json", telemetrySnapshotSchema)
	voteOutcomeCompiled       = jsonschema.MustCompileString("vote_outcome.json", voteOutcomeSchema)
)

func validateShape(compiled *jsonschema.Schema, raw json.RawMessage) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return compiled.Validate(payload)
}

// DecodeRouteDecision validates a raw route response structurally and
// semantically and returns the typed decision. Any failure means the call
// produced no usable result.
func DecodeRouteDecision(raw json.RawMessage) (*RouteDecision, error) {
	if err := validateShape(routeDecisionCompiled, raw); err != nil {
		return nil, fmt.Errorf("route decision shape: %w", err)
	}
	var d RouteDecision
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("route decision decode: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("route decision invalid: %w", err)
	}
	return &d, nil
}

// DecodeTelemetrySnapshot validates a raw telemetry response and returns the
// typed snapshot.
func DecodeTelemetrySnapshot(raw json.RawMessage) (*TelemetrySnapshot, error) {
	if err := validateShape(telemetrySnapshotCompiled, raw); err != nil {
		return nil, fmt.Errorf("telemetry snapshot shape: %w", err)
	}
	var s TelemetrySnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("telemetry snapshot decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("telemetry snapshot invalid: %w", err)
	}
	return &s, nil
}

// DecodeVoteOutcome validates a raw vote response and returns the typed
// outcome.
func DecodeVoteOutcome(raw json.RawMessage) (*VoteOutcome, error) {
	if err := validateShape(voteOutcomeCompiled, raw); err != nil {
		return nil, fmt.Errorf("vote outcome shape: %w", err)
	}
	var v VoteOutcome
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("vote outcome decode: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("vote outcome invalid: %w", err)
	}
	return &v, nil
}
