// Command adminhash prints the ADMIN_PASSWORD_HASH value for a password.
//
//	go run ./cmd/adminhash 'correct-horse-battery'
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mjunaidjbr/salawat-tally-bot/internal/config"
	"github.com/mjunaidjbr/salawat-tally-bot/internal/services"
	"github.com/spf13/viper"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: adminhash <password>")
		os.Exit(2)
	}
	if len(os.Args[1]) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	viper.AutomaticEnv()
	config.BindEnv()
	config.SetDefaults()

	hash, err := services.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	fmt.Println(hash)
}
