package constants

// orchestrator states
const (
	JobStateIdle                = "idle"
	JobStateInitializing        = "initializing"
	JobStateAwaitingCredentials = "awaiting_credentials"
	JobStatePaying              = "paying"
	JobStateOrdering            = "ordering"
	JobStateStarting            = "starting"
	JobStateSuccess             = "success"
	JobStateFailed              = "failed"
)

// step texts shown to the user
const (
	StepInitializing      = "Initializing provider and calculating fees..."
	StepCheckingOrderable = "Checking dataset and algorithm compatibility..."
	StepVerifyingSession  = "Verifying credentials session..."
	StepApproveEscrow     = "Approving payment token for escrow..."
	StepDepositEscrow     = "Depositing payment into escrow..."
	StepAuthorizeEscrow   = "Authorizing compute provider on escrow..."
	StepOrderAlgorithm    = "Ordering algorithm..."
	StepOrderDataset      = "Ordering dataset..."
	StepStartingJob       = "Starting compute job..."
	StepJobStarted        = "Compute job started"
	StepCancelled         = "Transaction rejected by the user"
)

const (
	ResourceModeFree = "free"
	ResourceModePaid = "paid"

	ResourceCpu  = "cpu"
	ResourceRam  = "ram"
	ResourceDisk = "disk"
)

const (
	AccessTypeFixed = "fixed"
	AccessTypeFree  = "free"

	ServiceTypeCompute = "compute"
	ServiceTypeAccess  = "access"

	ZeroAddress = "0x0000000000000000000000000000000000000000"
)

const (
	CACHE_CREDENTIAL_PREFIX = "credential:"
	CACHE_SESSION_PREFIX    = "session:"
)

// EscrowMaxLockCounts is passed as the last argument of escrow authorize.
const EscrowMaxLockCounts = 10
