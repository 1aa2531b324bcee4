package computing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lagrangedao/go-compute-to-data/util"
)

type ErrorKind int

const (
	RemoteCallFailure ErrorKind = iota
	UserCancelled
	ConfigurationError
	CredentialFailure
	EscrowFailure
)

func (k ErrorKind) String() string {
	switch k {
	case UserCancelled:
		return "UserCancelled"
	case ConfigurationError:
		return "ConfigurationError"
	case CredentialFailure:
		return "CredentialFailure"
	case EscrowFailure:
		return "EscrowFailure"
	}
	return "RemoteCallFailure"
}

var (
	ErrNoEnvironment      = errors.New("no compute environment selected")
	ErrNoResources        = errors.New("no compute resources selected")
	ErrNoDatasets         = errors.New("no dataset selected")
	ErrNoAlgorithm        = errors.New("no algorithm selected")
	ErrAlgorithmService   = errors.New("algorithm service not found")
	ErrNotOrderable       = errors.New("dataset does not allow this algorithm")
	ErrJobInProgress      = errors.New("a job submission is already in progress")
	ErrNothingToRetry     = errors.New("no failed submission to retry")
	ErrMissingJobID       = errors.New("provider did not return a job id")
	ErrMissingOrder       = errors.New("order transaction missing")
	ErrAllowanceTimeout   = errors.New("timed out waiting for token allowance")
	ErrNoEscrowAddress    = errors.New("provider returned no escrow address")
	ErrProviderNoResponse = errors.New("provider returned no initialization data")
)

// SubmitError is a classified failure of one job submission step.
type SubmitError struct {
	Kind ErrorKind
	Step string
	Err  error
}

func (e *SubmitError) Error() string {
	if e.Step == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same input may be submitted again.
func (e *SubmitError) Retryable() bool {
	return e.Kind == UserCancelled || e.Kind == RemoteCallFailure
}

// Message is the user facing text of the failure.
func (e *SubmitError) Message() string {
	msg := util.SanitizeMessage(e.Err.Error())
	switch e.Kind {
	case EscrowFailure, RemoteCallFailure:
		return msg + " Please retry."
	}
	return msg
}

func newError(kind ErrorKind, step string, err error) *SubmitError {
	return &SubmitError{Kind: kind, Step: step, Err: err}
}

var rejectionMessages = []string{
	"user rejected transaction",
	"user denied",
	"metamask tx signature: user denied",
}

// IsUserRejection matches the messages wallets use when the user declines to sign.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rejectionMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Classify wraps err as a SubmitError, using fallback unless err is already
// classified or is a wallet rejection.
func Classify(err error, fallback ErrorKind, step string) *SubmitError {
	if err == nil {
		return nil
	}
	var se *SubmitError
	if errors.As(err, &se) {
		return se
	}
	if IsUserRejection(err) {
		return newError(UserCancelled, step, err)
	}
	return newError(fallback, step, err)
}
