package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/caseboard/casewire/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	var maxBody int64
	if v := os.Getenv("CASEWIRED_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("Invalid CASEWIRED_MAX_BODY_BYTES: %v", err)
		}
		maxBody = n
	}

	srv := server.NewServer(maxBody)
	r := srv.SetupRouter()

	log.Printf("Starting casewired stub backend on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
