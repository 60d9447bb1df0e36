package main

// @title Payment Service API
// @version 1.0
// @description Payment orders, gateway webhooks and refunds for the poetry platform

// @host localhost:8083
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Payments
// @tag.description Payment order, webhook, refund and lookup endpoints
