package computing

import (
	"context"
	"errors"
	"net/http"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gin-gonic/gin"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/util"
)

// C2DService exposes one orchestrator over HTTP.
type C2DService struct {
	ctx      context.Context
	orch     *Orchestrator
	resolver AssetResolver
	account  string
}

// NewC2DService runs submissions under ctx, so they outlive the request that started them.
func NewC2DService(ctx context.Context, orch *Orchestrator, resolver AssetResolver, account string) *C2DService {
	return &C2DService{ctx: ctx, orch: orch, resolver: resolver, account: account}
}

func (s *C2DService) GetEnvironments(c *gin.Context) {
	envs, err := s.orch.Environments(c.Request.Context())
	if err != nil {
		logs.GetLogger().Errorf("get compute environments failed, error: %v", err)
		c.JSON(http.StatusBadGateway, util.CreateErrorResponse(util.EnvironmentError, errorMessage(err)))
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(envs))
}

func (s *C2DService) GetPrice(c *gin.Context) {
	var req models.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}
	input, err := ResolveJob(c.Request.Context(), s.resolver, s.account, req)
	if err != nil {
		c.JSON(statusFor(err), util.CreateErrorResponse(util.SelectionError, errorMessage(err)))
		return
	}
	pf, err := s.orch.InitPriceAndFees(c.Request.Context(), input, c.Query("escrow") == "true")
	if err != nil {
		c.JSON(statusFor(err), util.CreateErrorResponse(util.PriceError, errorMessage(err)))
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(pf))
}

func (s *C2DService) StartJob(c *gin.Context) {
	var req models.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.JsonError, err.Error()))
		return
	}
	if s.orch.IsOrdering() {
		c.JSON(http.StatusConflict, util.CreateErrorResponse(util.JobInProgress))
		return
	}
	input, err := ResolveJob(c.Request.Context(), s.resolver, s.account, req)
	if err != nil {
		c.JSON(statusFor(err), util.CreateErrorResponse(util.SelectionError, errorMessage(err)))
		return
	}
	logs.GetLogger().Infof("job received, environment: %s, datasets: %d", req.ComputeEnv, len(req.Datasets))

	go func() {
		if err := s.orch.StartJob(s.ctx, input); err != nil {
			logs.GetLogger().Errorf("start job failed, error: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, util.CreateSuccessResponse("job submitted"))
}

func (s *C2DService) RetryJob(c *gin.Context) {
	st := s.orch.Status()
	if st.IsOrdering {
		c.JSON(http.StatusConflict, util.CreateErrorResponse(util.JobInProgress))
		return
	}
	if !st.Retry {
		c.JSON(http.StatusBadRequest, util.CreateErrorResponse(util.NothingToRetry))
		return
	}
	go func() {
		if err := s.orch.Retry(s.ctx); err != nil {
			logs.GetLogger().Errorf("retry job failed, error: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, util.CreateSuccessResponse("job resubmitted"))
}

func (s *C2DService) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, util.CreateSuccessResponse(s.orch.Status()))
}

func (s *C2DService) ResetStatus(c *gin.Context) {
	if err := s.orch.Reset(); err != nil {
		c.JSON(http.StatusConflict, util.CreateErrorResponse(util.JobInProgress))
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse(s.orch.Status()))
}

func (s *C2DService) ResetCredentials(c *gin.Context) {
	if err := s.orch.ResetCredentials(); err != nil {
		logs.GetLogger().Errorf("reset credential cache failed, error: %v", err)
		c.JSON(http.StatusInternalServerError, util.CreateErrorResponse(util.CredentialError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, util.CreateSuccessResponse("credential cache cleared"))
}

func (s *C2DService) StreamStatus(c *gin.Context) {
	conn, err := upgrade.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.GetLogger().Errorf("upgrade status stream failed, error: %v", err)
		return
	}
	updates, cancel := s.orch.Subscribe()
	defer cancel()

	client := NewWsClient(conn)
	defer client.Close()
	client.HandleStatus(s.orch.Status(), updates)
}

func statusFor(err error) int {
	var se *SubmitError
	if errors.As(err, &se) && se.Kind == ConfigurationError {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func errorMessage(err error) string {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Message()
	}
	return util.SanitizeMessage(err.Error())
}
