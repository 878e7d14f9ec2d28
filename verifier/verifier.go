package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/synapsed-labs/swarmkit/scope"
	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// Verifier evaluates predicates against reality through injected
// probes (C3). It never mutates the world itself; every permissioned
// probe is checked against the owning Context's allow-list first, and
// a denial collapses to inconclusive rather than executing anything.
type Verifier struct {
	Command CommandProbe
	File    FileProbe
	Network NetworkProbe
	Logger  swarmcore.Logger
	Sink    swarmcore.ObservabilitySink
}

// New builds a Verifier with the reference OS-backed probes. Pass a
// nil field (via the exported struct literal) to substitute a fake
// probe in tests.
func New() *Verifier {
	return &Verifier{
		Command: OSCommandProbe{},
		File:    OSFileProbe{},
		Network: NewHTTPProbe(),
		Logger:  swarmcore.NoOpLogger{},
		Sink:    swarmcore.NoOpSink{},
	}
}

// Evaluate evaluates pred against reality under ctxScope's allow-list,
// producing a Proof attributed to intentID (§4.3).
func (v *Verifier) Evaluate(ctx context.Context, ctxScope *scope.Context, intentID swarmcore.ID, pred Predicate) *Proof {
	verdict, reason, observations := v.eval(ctx, ctxScope, pred)

	proof := &Proof{
		IntentID:     intentID,
		Claim:        pred.Description,
		Observations: observations,
		Verdict:      verdict,
		Reason:       reason,
	}
	proof.ProducedAt = time.Now().UTC()

	v.Sink.Emit(ctx, swarmcore.Event{
		Component: "verifier",
		Name:      "proof_produced",
		Fields: map[string]interface{}{
			"intent_id": intentID.String(),
			"verdict":   verdict.String(),
			"claim":     pred.Description,
		},
	})

	return proof
}

func (v *Verifier) eval(ctx context.Context, ctxScope *scope.Context, pred Predicate) (Verdict, string, []Observation) {
	switch pred.Kind {
	case PredicateCommand:
		return v.evalCommand(ctx, ctxScope, pred.Command)
	case PredicateFile:
		return v.evalFile(ctxScope, pred.File)
	case PredicateNetwork:
		return v.evalNetwork(ctx, ctxScope, pred.Network)
	case PredicateState:
		return v.evalState(pred.State)
	case PredicateComposite:
		return v.evalComposite(ctx, ctxScope, pred.Composite)
	default:
		obs := newObservation(pred.Kind, "unrecognized predicate kind", "", "unrecognized predicate kind")
		return VerdictInconclusive, "unrecognized predicate kind", []Observation{obs}
	}
}

func (v *Verifier) evalCommand(ctx context.Context, ctxScope *scope.Context, spec CommandSpec) (Verdict, string, []Observation) {
	if ctxScope != nil {
		if d := ctxScope.CheckPermission(scope.OpCommand, spec.Cmd); !d.Allow {
			obs := newObservation(PredicateCommand, "permission denied: "+d.Reason, "", d.Reason)
			return VerdictInconclusive, "permission-denied: " + d.Reason, []Observation{obs}
		}
	}

	result, err := v.Command.RunCommand(ctx, spec.Cmd, spec.Args, spec.Env, spec.Cwd, spec.Bound)
	if err != nil {
		obs := newObservation(PredicateCommand, fmt.Sprintf("probe error running %s", spec.Cmd), result.Stdout, err.Error())
		return VerdictInconclusive, err.Error(), []Observation{obs}
	}

	summary := fmt.Sprintf("exit=%d stdout_len=%d elapsed=%s", result.ExitCode, len(result.Stdout), result.Elapsed)
	obs := newObservation(PredicateCommand, summary, result.Stdout, "")

	if !intInSet(result.ExitCode, spec.ExitCodes) {
		return VerdictFail, fmt.Sprintf("exit code %d not in expected set %v", result.ExitCode, spec.ExitCodes), []Observation{obs}
	}
	if spec.StdoutPattern != "" {
		re, rerr := regexp.Compile(spec.StdoutPattern)
		if rerr != nil {
			return VerdictInconclusive, "invalid stdout pattern: " + rerr.Error(), []Observation{obs}
		}
		if !re.MatchString(result.Stdout) {
			return VerdictFail, "stdout did not match expected pattern", []Observation{obs}
		}
	}
	return VerdictPass, "", []Observation{obs}
}

func (v *Verifier) evalFile(ctxScope *scope.Context, spec FileSpec) (Verdict, string, []Observation) {
	if ctxScope != nil {
		if d := ctxScope.CheckPermission(scope.OpPath, spec.Path); !d.Allow {
			obs := newObservation(PredicateFile, "permission denied: "+d.Reason, "", d.Reason)
			return VerdictInconclusive, "permission-denied: " + d.Reason, []Observation{obs}
		}
	}

	content, exists, err := v.File.ReadFile(spec.Path)
	if err != nil {
		obs := newObservation(PredicateFile, "probe error reading file", "", err.Error())
		return VerdictInconclusive, err.Error(), []Observation{obs}
	}

	switch spec.Check {
	case FileExists:
		obs := newObservation(PredicateFile, fmt.Sprintf("exists=%v", exists), "", "")
		if exists {
			return VerdictPass, "", []Observation{obs}
		}
		return VerdictFail, "file does not exist", []Observation{obs}
	case FileNotExists:
		obs := newObservation(PredicateFile, fmt.Sprintf("exists=%v", exists), "", "")
		if !exists {
			return VerdictPass, "", []Observation{obs}
		}
		return VerdictFail, "file unexpectedly exists", []Observation{obs}
	case FileMatchesHash:
		if !exists {
			obs := newObservation(PredicateFile, "file does not exist", "", "")
			return VerdictFail, "file does not exist", []Observation{obs}
		}
		sum := sha256.Sum256(content)
		got := hex.EncodeToString(sum[:])
		obs := newObservation(PredicateFile, "hash="+got, string(content), "")
		if got == spec.Hash {
			return VerdictPass, "", []Observation{obs}
		}
		return VerdictFail, fmt.Sprintf("hash mismatch: got %s want %s", got, spec.Hash), []Observation{obs}
	case FileContainsSubstring:
		if !exists {
			obs := newObservation(PredicateFile, "file does not exist", "", "")
			return VerdictFail, "file does not exist", []Observation{obs}
		}
		obs := newObservation(PredicateFile, fmt.Sprintf("len=%d", len(content)), string(content), "")
		if strings.Contains(string(content), spec.Substring) {
			return VerdictPass, "", []Observation{obs}
		}
		return VerdictFail, "file does not contain expected substring", []Observation{obs}
	default:
		obs := newObservation(PredicateFile, "unrecognized file check", "", "unrecognized file check")
		return VerdictInconclusive, "unrecognized file check", []Observation{obs}
	}
}

func (v *Verifier) evalNetwork(ctx context.Context, ctxScope *scope.Context, spec NetworkSpec) (Verdict, string, []Observation) {
	host := hostOf(spec.URL)
	if ctxScope != nil {
		if d := ctxScope.CheckPermission(scope.OpNetworkHost, host); !d.Allow {
			obs := newObservation(PredicateNetwork, "permission denied: "+d.Reason, "", d.Reason)
			return VerdictInconclusive, "permission-denied: " + d.Reason, []Observation{obs}
		}
	}

	result, err := v.Network.HTTPRequest(ctx, spec.Method, spec.URL, spec.Headers, spec.Body, spec.Bound)
	if err != nil {
		obs := newObservation(PredicateNetwork, "probe error", "", err.Error())
		return VerdictInconclusive, err.Error(), []Observation{obs}
	}

	summary := fmt.Sprintf("status=%d body_len=%d", result.Status, len(result.Body))
	obs := newObservation(PredicateNetwork, summary, string(result.Body), "")

	if !intInSet(result.Status, spec.StatusCodes) {
		return VerdictFail, fmt.Sprintf("status %d not in expected set %v", result.Status, spec.StatusCodes), []Observation{obs}
	}
	if spec.BodyPattern != "" {
		re, rerr := regexp.Compile(spec.BodyPattern)
		if rerr != nil {
			return VerdictInconclusive, "invalid body pattern: " + rerr.Error(), []Observation{obs}
		}
		if !re.Match(result.Body) {
			return VerdictFail, "response body did not match expected pattern", []Observation{obs}
		}
	}
	return VerdictPass, "", []Observation{obs}
}

func (v *Verifier) evalState(spec StateSpec) (Verdict, string, []Observation) {
	if spec.Eval == nil {
		obs := newObservation(PredicateState, "no evaluator supplied", "", "no evaluator supplied")
		return VerdictInconclusive, "no evaluator supplied", []Observation{obs}
	}
	ok, err := spec.Eval(spec.Snapshot)
	if err != nil {
		obs := newObservation(PredicateState, "evaluator error", "", err.Error())
		return VerdictInconclusive, err.Error(), []Observation{obs}
	}
	obs := newObservation(PredicateState, fmt.Sprintf("result=%v", ok), "", "")
	if ok {
		return VerdictPass, "", []Observation{obs}
	}
	return VerdictFail, "state predicate evaluated false", []Observation{obs}
}

func (v *Verifier) evalComposite(ctx context.Context, ctxScope *scope.Context, spec CompositeSpec) (Verdict, string, []Observation) {
	var all []Observation
	switch spec.Op {
	case CompositeAllOf:
		for _, in := range spec.Inputs {
			verdict, reason, obs := v.eval(ctx, ctxScope, in)
			all = append(all, obs...)
			if verdict == VerdictInconclusive {
				return VerdictInconclusive, reason, all
			}
			if verdict == VerdictFail {
				return VerdictFail, reason, all
			}
		}
		return VerdictPass, "", all
	case CompositeAnyOf:
		inconclusiveSeen := false
		var lastReason string
		for _, in := range spec.Inputs {
			verdict, reason, obs := v.eval(ctx, ctxScope, in)
			all = append(all, obs...)
			if verdict == VerdictPass {
				return VerdictPass, "", all
			}
			if verdict == VerdictInconclusive {
				inconclusiveSeen = true
			}
			lastReason = reason
		}
		if inconclusiveSeen {
			return VerdictInconclusive, lastReason, all
		}
		return VerdictFail, "no input predicate passed", all
	case CompositeNotOf:
		if len(spec.Inputs) != 1 {
			return VerdictInconclusive, "not_of requires exactly one input", all
		}
		verdict, _, obs := v.eval(ctx, ctxScope, spec.Inputs[0])
		all = append(all, obs...)
		switch verdict {
		case VerdictPass:
			return VerdictFail, "negated predicate passed", all
		case VerdictFail:
			return VerdictPass, "", all
		default:
			return VerdictInconclusive, "negated predicate inconclusive", all
		}
	default:
		return VerdictInconclusive, "unrecognized composite operator", all
	}
}

func intInSet(n int, set []int) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == n {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
