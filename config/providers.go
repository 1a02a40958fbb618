package config

import (
	"os"
	"sync"
)

var (
	tongyiOnce   sync.Once
	tongyiConfig *TongyiConfig

	zhipuOnce   sync.Once
	zhipuConfig *ZhipuConfig
)

type TongyiConfig struct {
	APIKey   string
	Endpoint string
	Model    string
}

type ZhipuConfig struct {
	APIKey   string
	Endpoint string
	Model    string
}

func GetTongyiConfig() *TongyiConfig {
	tongyiOnce.Do(func() {
		loadEnv()
		tongyiConfig = &TongyiConfig{
			APIKey:   os.Getenv("TONGYI_API_KEY"),
			Endpoint: os.Getenv("TONGYI_ENDPOINT"),
			Model:    os.Getenv("TONGYI_MODEL"),
		}
	})
	return tongyiConfig
}

func GetZhipuConfig() *ZhipuConfig {
	zhipuOnce.Do(func() {
		loadEnv()
		zhipuConfig = &ZhipuConfig{
			APIKey:   os.Getenv("ZHIPU_API_KEY"),
			Endpoint: os.Getenv("ZHIPU_ENDPOINT"),
			Model:    os.Getenv("ZHIPU_MODEL"),
		}
	})
	return zhipuConfig
}
