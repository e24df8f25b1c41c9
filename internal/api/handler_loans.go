package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"slaveloan-backend/internal/model"
	"slaveloan-backend/internal/slavetype"
	"slaveloan-backend/internal/store"
)

// loanResponse represents the API view of a single loan.
type loanResponse struct {
	ID            int64   `json:"id"`
	Status        string  `json:"status"`
	LdapEmail     string  `json:"ldap_email"`
	BugzillaEmail string  `json:"bugzilla_email"`
	FQDN          *string `json:"fqdn"`
	IPAddress     *string `json:"ipaddress"`
	BugID         *int64  `json:"bug_id"`
}

// historyResponse represents one line of a loan's audit trail.
type historyResponse struct {
	LoanID    int64     `json:"loan_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

func toLoanResponse(l *model.Loan) loanResponse {
	resp := loanResponse{
		ID:            l.ID,
		Status:        l.Status,
		LdapEmail:     l.Human.LdapEmail,
		BugzillaEmail: l.Human.BugzillaEmail,
		BugID:         l.BugID,
	}
	if l.Machine != nil {
		resp.FQDN = &l.Machine.FQDN
		resp.IPAddress = &l.Machine.IPAddress
	}
	return resp
}

// writeStoreError maps the store's error taxonomy onto HTTP status codes.
func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "loan not found"})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Integrity Error from Database, please retry."})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func loanIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("loanid"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid loan ID"})
		return 0, false
	}
	return id, true
}

// GetLoans handles GET /api/loans: all loans with an assigned machine.
func (h *Handler) GetLoans(c *gin.Context) {
	loans, err := h.store.ListLoans(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	responses := make([]loanResponse, 0, len(loans))
	for i := range loans {
		responses = append(responses, toLoanResponse(&loans[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetAllLoans handles GET /api/loans/all: every loan, machine or not.
func (h *Handler) GetAllLoans(c *gin.Context) {
	loans, err := h.store.ListAllLoans(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	responses := make([]loanResponse, 0, len(loans))
	for i := range loans {
		responses = append(responses, toLoanResponse(&loans[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetLoan handles GET /api/loans/:loanid.
func (h *Handler) GetLoan(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}
	loan, err := h.store.GetLoan(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLoanResponse(loan))
}

// GetLoanHistory handles GET /api/loans/:loanid/history, ascending by
// timestamp.
func (h *Handler) GetLoanHistory(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}
	entries, err := h.store.LoanHistory(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	responses := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, historyResponse{
			LoanID:    e.LoanID,
			Timestamp: e.Timestamp,
			Message:   e.Message,
		})
	}
	c.JSON(http.StatusOK, responses)
}

type adminLoanRequest struct {
	Status        string `json:"status"`
	LdapEmail     string `json:"ldap_email"`
	BugzillaEmail string `json:"bugzilla_email"`
	FQDN          string `json:"fqdn"`
	IPAddress     string `json:"ipaddress"`
}

// NewLoanFromAdmin handles POST /api/loans/new: direct loan creation with a
// caller-chosen status. Machine fields are mandatory for non-PENDING
// statuses.
func (h *Handler) NewLoanFromAdmin(c *gin.Context) {
	var req adminLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing Status Field"})
		return
	}
	if !model.KnownStatus(req.Status) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unsupported status"})
		return
	}
	if req.LdapEmail == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing LDAP E-Mail"})
		return
	}
	if req.BugzillaEmail == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing Bugzilla E-Mail"})
		return
	}
	if req.Status != model.StatusPending {
		if req.FQDN == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing Machine FQDN"})
			return
		}
		if req.IPAddress == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing Machine IP Address"})
			return
		}
	}

	loan, err := h.store.CreateAdminLoan(c.Request.Context(), store.AdminLoanParams{
		Status:        req.Status,
		LdapEmail:     req.LdapEmail,
		BugzillaEmail: req.BugzillaEmail,
		FQDN:          req.FQDN,
		IPAddress:     req.IPAddress,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLoanResponse(loan))
}

type loanRequest struct {
	LdapEmail          string `json:"ldap_email"`
	BugzillaEmail      string `json:"bugzilla_email"`
	RequestedSlaveType string `json:"requested_slavetype"`
	LoanBugID          *int64 `json:"loan_bug_id"`
}

// NewLoanRequest handles POST /api/loans/request: user loan requesting. The
// loan is always created PENDING and the provisioning pipeline is enqueued
// after the commit; the response does not wait for provisioning.
func (h *Handler) NewLoanRequest(c *gin.Context) {
	var req loanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.LdapEmail == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing LDAP E-Mail"})
		return
	}
	if req.RequestedSlaveType == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing slavetype"})
		return
	}
	canonical, ok := slavetype.Resolve(req.RequestedSlaveType)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unsupported slavetype"})
		return
	}

	if req.BugzillaEmail == "" {
		// Fall back to the LDAP address for bug traffic.
		req.BugzillaEmail = req.LdapEmail
	}

	loan, err := h.store.CreateLoanRequest(c.Request.Context(), store.LoanRequestParams{
		LdapEmail:     req.LdapEmail,
		BugzillaEmail: req.BugzillaEmail,
		BugID:         req.LoanBugID,
		SlaveType:     canonical,
		RequestedName: req.RequestedSlaveType,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}

	// The loan is committed at this point. A rejected dispatch leaves it
	// PENDING; no compensating rollback.
	if err := h.dispatcher.Enqueue(loan.ID, canonical); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   err.Error(),
			"loan_id": loan.ID,
		})
		return
	}

	c.JSON(http.StatusCreated, toLoanResponse(loan))
}
