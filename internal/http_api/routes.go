package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/api/v1/markers", s.listMarkers)
	s.router.POST("/api/v1/markers/load_more", s.loadMore)
	s.router.GET("/api/v1/markers/selected", s.selectedMarker)
	s.router.POST("/api/v1/markers/:id/select", s.selectMarker)
	s.router.POST("/api/v1/markers/:id/expire", s.expireMarker)
	s.router.GET("/api/v1/counts", s.counts)
	s.router.GET("/api/v1/session", s.session)
	s.router.GET("/api/v1/payment", s.payment)
	s.router.DELETE("/api/v1/payment", s.cancelPayment)
	s.router.POST("/api/v1/pins", s.createPin)
}
