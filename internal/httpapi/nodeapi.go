// Package httpapi is the core's external HTTP surface (spec §4.7): three
// routers on three listeners so each auth domain (node-agent signatures,
// customer bearer tokens, provider/marketplace callback signatures) is
// isolated from the others, plus an unauthenticated ops router for
// health/readiness/metrics.
package httpapi

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
)

// Aggregator is the subset of aggregator.Aggregator the node-agent router
// depends on.
type Aggregator interface {
	RegisterNode(nodeID, clusterID, providerAddress string, publicKey []byte, hostname string, capacity domain.Capacity, locality domain.Locality) error
	SubmitHeartbeat(hb domain.Heartbeat) error
	SubmitMetricsBatch(nodeID string, records []domain.MetricRecord) (accepted int, rejected []string)
	Deregister(nodeID, reason string) error
	Node(nodeID string) (domain.Node, error)
}

// NodeAPI is the gin router for node-agent registration, heartbeats, and
// metrics (spec §4.7 "node agent registration", "signed heartbeat").
type NodeAPI struct {
	agg Aggregator
}

// NewNodeAPI builds a NodeAPI.
func NewNodeAPI(agg Aggregator) *NodeAPI {
	return &NodeAPI{agg: agg}
}

// Register mounts the node-agent routes on a gin engine.
func (a *NodeAPI) Register(r gin.IRouter) {
	r.POST("/api/v1/hpc/nodes/register", a.handleRegister)
	r.POST("/api/v1/hpc/nodes/:nodeId/heartbeat", a.handleHeartbeat)
	r.POST("/api/v1/hpc/nodes/:nodeId/metrics", a.handleMetrics)
	r.POST("/api/v1/hpc/nodes/:nodeId/deregister", a.handleDeregister)
}

type registerRequest struct {
	NodeID          string `json:"nodeId" binding:"required"`
	ClusterID       string `json:"clusterId" binding:"required"`
	ProviderAddress string `json:"providerAddress" binding:"required"`
	PublicKey       string `json:"publicKey" binding:"required"` // base64
	Hostname        string `json:"hostname"`
	Capacity        struct {
		CPUCores  int    `json:"cpuCores"`
		MemoryGB  int    `json:"memoryGB"`
		GPUs      int    `json:"gpus"`
		GPUType   string `json:"gpuType"`
		StorageGB int    `json:"storageGB"`
	} `json:"capacity"`
	Locality struct {
		Region     string `json:"region"`
		Datacenter string `json:"datacenter"`
		Zone       string `json:"zone"`
		Rack       string `json:"rack"`
	} `json:"locality"`
}

func (a *NodeAPI) handleRegister(c *gin.Context) {
	raw, err := readRawBody(c)
	if err != nil {
		writeGinError(c, err)
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeGinError(c, apierrors.InvalidInput("body", err.Error()))
		return
	}

	pubKey, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		writeGinError(c, apierrors.InvalidInput("publicKey", "not valid base64"))
		return
	}

	if !verifySignatureBytes(c, raw, pubKey) {
		return
	}

	capacity := domain.Capacity{
		CPUCores: req.Capacity.CPUCores, MemoryGB: req.Capacity.MemoryGB,
		GPUs: req.Capacity.GPUs, GPUType: req.Capacity.GPUType, StorageGB: req.Capacity.StorageGB,
		AvailCPU: req.Capacity.CPUCores, AvailMemGB: req.Capacity.MemoryGB,
		AvailGPUs: req.Capacity.GPUs, AvailStoreG: req.Capacity.StorageGB,
	}
	locality := domain.Locality{
		Region: req.Locality.Region, Datacenter: req.Locality.Datacenter,
		Zone: req.Locality.Zone, Rack: req.Locality.Rack,
	}

	if err := a.agg.RegisterNode(req.NodeID, req.ClusterID, req.ProviderAddress, pubKey, req.Hostname, capacity, locality); err != nil {
		writeGinError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"nodeId": req.NodeID, "status": "registered"})
}

type heartbeatRequest struct {
	ClusterID      string  `json:"clusterId" binding:"required"`
	SequenceNumber uint64  `json:"sequenceNumber"`
	TimestampUnix  int64   `json:"timestamp"`
	CPUUtil        float64 `json:"cpuUtil"`
	MemUtil        float64 `json:"memUtil"`
	Load1m         float64 `json:"load1m"`
	GPUUtil        float64 `json:"gpuUtil"`
	SlurmState     string  `json:"slurmState"`
	Signature      string  `json:"signature"` // base64, over canonical heartbeat fields
}

func (a *NodeAPI) handleHeartbeat(c *gin.Context) {
	nodeID := c.Param("nodeId")

	node, err := a.agg.Node(nodeID)
	if err != nil {
		writeGinError(c, err)
		return
	}

	raw, err := readRawBody(c)
	if err != nil {
		writeGinError(c, err)
		return
	}

	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeGinError(c, apierrors.InvalidInput("body", err.Error()))
		return
	}

	if !verifySignatureBytes(c, raw, node.PublicKey) {
		return
	}

	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		writeGinError(c, apierrors.InvalidInput("signature", "not valid base64"))
		return
	}

	hb := domain.Heartbeat{
		NodeID: nodeID, ClusterID: req.ClusterID, SequenceNumber: req.SequenceNumber,
		Timestamp: unixOrNow(req.TimestampUnix),
		Metrics: domain.HeartbeatMetrics{
			CPUUtil: req.CPUUtil, MemUtil: req.MemUtil, Load1m: req.Load1m,
			GPUUtil: req.GPUUtil, SlurmState: req.SlurmState,
		},
		Signature: sig,
	}

	if err := a.agg.SubmitHeartbeat(hb); err != nil {
		writeGinError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodeId": nodeID, "sequenceNumber": req.SequenceNumber, "status": "accepted"})
}

type metricsBatchRequest struct {
	Records []struct {
		Name          string  `json:"name"`
		Value         float64 `json:"value"`
		TimestampUnix int64   `json:"timestamp"`
	} `json:"records"`
}

func (a *NodeAPI) handleMetrics(c *gin.Context) {
	nodeID := c.Param("nodeId")

	node, err := a.agg.Node(nodeID)
	if err != nil {
		writeGinError(c, err)
		return
	}

	raw, err := readRawBody(c)
	if err != nil {
		writeGinError(c, err)
		return
	}

	var req metricsBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeGinError(c, apierrors.InvalidInput("body", err.Error()))
		return
	}

	if !verifySignatureBytes(c, raw, node.PublicKey) {
		return
	}

	records := make([]domain.MetricRecord, len(req.Records))
	for i, r := range req.Records {
		records[i] = domain.MetricRecord{Name: r.Name, Value: r.Value, Timestamp: unixOrNow(r.TimestampUnix)}
	}

	accepted, rejected := a.agg.SubmitMetricsBatch(nodeID, records)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "rejected": rejected})
}

func (a *NodeAPI) handleDeregister(c *gin.Context) {
	nodeID := c.Param("nodeId")

	node, err := a.agg.Node(nodeID)
	if err != nil {
		writeGinError(c, err)
		return
	}

	raw, err := readRawBody(c)
	if err != nil {
		writeGinError(c, err)
		return
	}
	if !verifySignatureBytes(c, raw, node.PublicKey) {
		return
	}

	reason := c.Query("reason")
	if err := a.agg.Deregister(nodeID, reason); err != nil {
		writeGinError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodeId": nodeID, "status": "deregistered"})
}

func unixOrNow(unix int64) time.Time {
	if unix == 0 {
		return time.Now()
	}
	return time.Unix(unix, 0)
}
