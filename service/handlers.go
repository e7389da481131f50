package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"library-lending/cache"
	"library-lending/library"
)

// MaxActivityEntries caps the per-member request trail kept in redis.
const MaxActivityEntries = 20

// Server wires the lending core to the HTTP layer.
type Server struct {
	mgr      *library.LibraryManager
	sessions *sessionStore
	activity cache.RequestCacher // nil disables activity tracking
}

func NewServer(mgr *library.LibraryManager, activity cache.RequestCacher) *Server {
	return &Server{mgr: mgr, sessions: newSessionStore(), activity: activity}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrBookNotFound),
		errors.Is(err, library.ErrLoanNotFound),
		errors.Is(err, library.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrOutOfStock),
		errors.Is(err, library.ErrAlreadyReturned),
		errors.Is(err, library.ErrStockBelowLoans),
		errors.Is(err, library.ErrOpenLoansExist),
		errors.Is(err, library.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, library.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid " + name})
		return 0, false
	}
	return id, true
}

// ------------------ Auth ------------------

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	id, err := s.mgr.AddMember(req.Name, req.Email, req.Password, library.RoleMember)
	if err != nil {
		abortWithError(c, err)
		return
	}

	member, err := s.mgr.GetMember(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	member, err := s.mgr.AuthenticateMember(req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": s.sessions.Issue(member.ID),
		"user":  member,
	})
}

// AuthRequired resolves the bearer token into a member and stores it on the
// context.
func (s *Server) AuthRequired(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
		return
	}

	memberID, ok := s.sessions.MemberID(token)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}

	member, err := s.mgr.GetMember(memberID)
	if err != nil {
		s.sessions.Revoke(token)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}

	c.Set("member", member)
	c.Next()
}

// AdminRequired must run after AuthRequired.
func (s *Server) AdminRequired(c *gin.Context) {
	if !currentMember(c).IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin role required"})
		return
	}
	c.Next()
}

func currentMember(c *gin.Context) *library.Member {
	return c.MustGet("member").(*library.Member)
}

// ------------------ Activity trail ------------------

type memberRequest struct {
	Method string `json:"method"`
	Route  string `json:"route"`
}

// TrackActivity appends the request to the member's activity trail. Runs
// after AuthRequired; failures are logged, never surfaced.
func (s *Server) TrackActivity(c *gin.Context) {
	if s.activity != nil {
		entry, err := json.Marshal(memberRequest{
			Method: c.Request.Method,
			Route:  c.Request.URL.Path,
		})
		if err == nil {
			if err := s.activity.Write(currentMember(c).Email, entry); err != nil {
				slog.Debug("activity write failed", "error", err)
			}
		}
	}
	c.Next()
}

func (s *Server) Activity(c *gin.Context) {
	if s.activity == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "activity tracking disabled"})
		return
	}

	entries, err := s.activity.Read(c.Param("email"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	requests := make([]memberRequest, 0, len(entries))
	for _, raw := range entries {
		var req memberRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			continue
		}
		requests = append(requests, req)
	}
	c.JSON(http.StatusOK, requests)
}

// ------------------ Catalog ------------------

func (s *Server) ListBooks(c *gin.Context) {
	books, err := s.mgr.GetAllBooks()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) SearchBooks(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "query parameter is required"})
		return
	}

	books, err := s.mgr.SearchBooks(query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) CreateBook(c *gin.Context) {
	var book library.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	created, err := s.mgr.AddBook(book)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) UpdateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var changes library.Book
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	updated, err := s.mgr.UpdateBook(id, changes)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.mgr.DeleteBook(id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ------------------ Circulation ------------------

func (s *Server) BorrowBook(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}

	loan, err := s.mgr.BorrowBook(bookID, currentMember(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (s *Server) ReturnLoan(c *gin.Context) {
	loanID, ok := pathID(c, "loanId")
	if !ok {
		return
	}

	loan, err := s.mgr.ReturnLoan(loanID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (s *Server) CurrentBorrower(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}

	loan, err := s.mgr.OpenLoanForBook(bookID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if loan == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "no open loan for this book"})
		return
	}
	c.JSON(http.StatusOK, loan)
}

// ------------------ Loan queries ------------------

func (s *Server) OverdueLoans(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "as_of must be YYYY-MM-DD"})
			return
		}
		asOf = parsed
	}

	loans, err := s.mgr.OverdueLoans(asOf)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (s *Server) ActiveLoans(c *gin.Context) {
	loans, err := s.mgr.OpenLoans()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (s *Server) MyLoanHistory(c *gin.Context) {
	loans, err := s.mgr.LoansForMember(currentMember(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

func (s *Server) MemberLoanHistory(c *gin.Context) {
	memberID, ok := pathID(c, "memberId")
	if !ok {
		return
	}

	if _, err := s.mgr.GetMember(memberID); err != nil {
		abortWithError(c, err)
		return
	}
	loans, err := s.mgr.LoansForMember(memberID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}

// ------------------ Members ------------------

func (s *Server) ListMembers(c *gin.Context) {
	members, err := s.mgr.GetAllMembers()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

type updateMemberRequest struct {
	Name string `json:"name" binding:"required"`
	Role string `json:"role"`
}

func (s *Server) UpdateMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	member, err := s.mgr.UpdateMember(id, req.Name, req.Role)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}
