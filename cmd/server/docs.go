package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Sol YieldHunter API
// @version         0.1.0
// @description     Solana yield opportunities, simulated portfolio, transactions and the SolSeeker assistant.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
