package main

import (
	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/app/server"
	"github.com/jumpei00/gocryptobacktest/config"
	"github.com/jumpei00/gocryptobacktest/log"
)

func main() {
	config.InitConfig()
	log.SetLogging()
	models.InitDB()
	server.Run()
}
