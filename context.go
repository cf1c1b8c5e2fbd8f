package main

import (
	"strings"
	"sync"

	"vidcompress/config"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     config.File
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (config.File, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
		if c.configErr == nil && c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				c.config.LogLevel = level
			}
		}
	})
	return c.config, c.configErr
}

// loadConfig reads the -c file, else the default path. Without a resolvable
// default path the built-in defaults apply.
func (c *commandContext) loadConfig() (config.File, error) {
	path := ""
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return config.DefaultFile(), nil
		}
		path = defaultPath
	}
	return config.Load(path)
}
