package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
)

// LifecycleEngine is the subset of lifecycle.Engine the customer job router
// depends on.
type LifecycleEngine interface {
	Submit(ctx context.Context, job domain.Job) error
	Job(jobID string) (domain.Job, error)
	Cancel(ctx context.Context, jobID, approverID string) error
}

// JobAPI is the gin router for customer job submission and lookup (spec
// §4.7 "customer submits job", "customer queries job status").
type JobAPI struct {
	engine LifecycleEngine
	auth   *JWTVerifier
}

// NewJobAPI builds a JobAPI.
func NewJobAPI(engine LifecycleEngine, auth *JWTVerifier) *JobAPI {
	return &JobAPI{engine: engine, auth: auth}
}

// Register mounts the customer job routes on a gin engine.
func (a *JobAPI) Register(r gin.IRouter) {
	r.POST("/api/v1/hpc/jobs", a.handleSubmit)
	r.GET("/api/v1/hpc/jobs/:jobId", a.handleGet)
	r.POST("/api/v1/hpc/jobs/:jobId/cancel", a.handleCancel)
}

// authenticate verifies the bearer token and returns the customer address,
// writing a 401 response on failure.
func (a *JobAPI) authenticate(c *gin.Context) (string, bool) {
	addr, err := a.auth.VerifyBearer(c.GetHeader("Authorization"))
	if err != nil {
		writeGinError(c, err)
		return "", false
	}
	return addr, true
}

type submitJobRequest struct {
	JobID      string `json:"jobId" binding:"required"`
	OfferingID string `json:"offeringId" binding:"required"`
	EscrowID   string `json:"escrowId" binding:"required"`
	Workload   struct {
		Image   string            `json:"image" binding:"required"`
		Command string            `json:"command"`
		Args    []string          `json:"args"`
		Env     map[string]string `json:"env"`
	} `json:"workload"`
	Resources struct {
		Nodes        int    `json:"nodes" binding:"required"`
		CPUPerNode   int    `json:"cpuPerNode"`
		MemGBPerNode int    `json:"memGBPerNode"`
		GPUsPerNode  int    `json:"gpusPerNode"`
		GPUType      string `json:"gpuType"`
	} `json:"resources"`
	Constraints struct {
		RegionAllowList []string `json:"regionAllowList"`
		RequireGPUType  string   `json:"requireGpuType"`
		SameRack        bool     `json:"sameRack"`
		SameZone        bool     `json:"sameZone"`
	} `json:"constraints"`
	MaxRuntimeSeconds int64  `json:"maxRuntimeSeconds"`
	Schedule          string `json:"schedule"`
}

func (a *JobAPI) handleSubmit(c *gin.Context) {
	customer, ok := a.authenticate(c)
	if !ok {
		return
	}

	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeGinError(c, apierrors.InvalidInput("body", err.Error()))
		return
	}

	job := domain.Job{
		JobID:           req.JobID,
		OfferingID:      req.OfferingID,
		CustomerAddress: customer,
		EscrowID:        req.EscrowID,
		Workload: domain.WorkloadSpec{
			Image: req.Workload.Image, Command: req.Workload.Command,
			Args: req.Workload.Args, Env: req.Workload.Env,
		},
		Resources: domain.ResourceDemand{
			Nodes: req.Resources.Nodes, CPUPerNode: req.Resources.CPUPerNode,
			MemGBPerNode: req.Resources.MemGBPerNode, GPUsPerNode: req.Resources.GPUsPerNode,
			GPUType: req.Resources.GPUType,
		},
		Constraints: domain.PlacementConstraints{
			RegionAllowList: req.Constraints.RegionAllowList,
			RequireGPUType:  req.Constraints.RequireGPUType,
			SameRack:        req.Constraints.SameRack,
			SameZone:        req.Constraints.SameZone,
		},
		MaxRuntime: time.Duration(req.MaxRuntimeSeconds) * time.Second,
		Schedule:   req.Schedule,
	}

	if err := a.engine.Submit(c.Request.Context(), job); err != nil {
		writeGinError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.JobID, "status": string(domain.JobSubmitted)})
}

func (a *JobAPI) handleGet(c *gin.Context) {
	customer, ok := a.authenticate(c)
	if !ok {
		return
	}

	job, err := a.engine.Job(c.Param("jobId"))
	if err != nil {
		writeGinError(c, err)
		return
	}
	if job.CustomerAddress != customer {
		writeGinError(c, apierrors.Forbidden("job does not belong to this customer"))
		return
	}
	c.JSON(http.StatusOK, job)
}

func (a *JobAPI) handleCancel(c *gin.Context) {
	customer, ok := a.authenticate(c)
	if !ok {
		return
	}

	jobID := c.Param("jobId")
	job, err := a.engine.Job(jobID)
	if err != nil {
		writeGinError(c, err)
		return
	}
	if job.CustomerAddress != customer {
		writeGinError(c, apierrors.Forbidden("job does not belong to this customer"))
		return
	}

	if err := a.engine.Cancel(c.Request.Context(), jobID, customer); err != nil {
		writeGinError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": jobID, "status": string(domain.JobCancelled)})
}
