package service

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the gin engine. Catalog reads are public; everything
// else needs a session, and catalog writes plus library-wide loan views need
// the admin role.
func SetupRoutes(s *Server) *gin.Engine {
	routes := gin.Default()

	api := routes.Group("/api")

	api.POST("/auth/register", s.Register)
	api.POST("/auth/login", s.Login)
	api.GET("/books", s.ListBooks)
	api.GET("/books/search", s.SearchBooks)

	auth := api.Group("")
	{
		auth.Use(s.AuthRequired, s.TrackActivity)

		auth.POST("/loans/borrow/:bookId", s.BorrowBook)
		auth.PUT("/loans/return/:loanId", s.ReturnLoan)
		auth.GET("/loans/history/my", s.MyLoanHistory)

		admin := auth.Group("")
		{
			admin.Use(s.AdminRequired)

			admin.POST("/books", s.CreateBook)
			admin.PUT("/books/:id", s.UpdateBook)
			admin.DELETE("/books/:id", s.DeleteBook)

			admin.GET("/loans/overdue", s.OverdueLoans)
			admin.GET("/loans/active", s.ActiveLoans)
			admin.GET("/loans/member/:memberId", s.MemberLoanHistory)
			admin.GET("/loans/current/:bookId", s.CurrentBorrower)

			admin.GET("/members", s.ListMembers)
			admin.PUT("/members/:id", s.UpdateMember)

			admin.GET("/activity/:email", s.Activity)
		}
	}

	return routes
}
