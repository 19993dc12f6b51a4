package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	"xrtour/internal/hertzapi"
	"xrtour/internal/tour"
)

func main() {
	registry := tour.DefaultRegistry()
	manager := tour.NewManager(registry)

	serverConfig := server.Default(server.WithHostPorts(":8080"))

	router := hertzapi.NewRouter(serverConfig, manager)

	go func() {
		log.Println("Starting Hertz server on :8080")
		router.Spin()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v\n", err)
	}

	log.Println("Server stopped")
}
