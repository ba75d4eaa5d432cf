package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yfetch/perplexity-proxy/internal/config"
)

var (
	Version   string
	BuildTime string
	cfgFile   string
)

var (
	checkToken string
)

var rootCmd = &cobra.Command{
	Use:   "perplexity-proxy",
	Short: "Authenticated proxy for the Perplexity chat completions API",
	Long: `perplexity-proxy verifies Supabase-issued bearer tokens and relays
chat completion requests to Perplexity with a server-held API key.`,
	RunE:         defaultRun, // 默认执行serve或check-token
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局标志
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug/info/warn/error)")

	rootCmd.Flags().StringVar(&checkToken, "check-token", "", "verify a bearer token against the identity service and exit")

	// 服务器标志（root与serve共用）
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "server host")
	rootCmd.PersistentFlags().Int("port", 8045, "server port")
	rootCmd.PersistentFlags().String("mode", "release", "server mode (debug/release/test)")
	rootCmd.PersistentFlags().String("route", "/perplexity", "path of the relay endpoint")

	// 绑定到viper
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("server.mode", rootCmd.PersistentFlags().Lookup("mode"))
	viper.BindPFlag("server.route", rootCmd.PersistentFlags().Lookup("route"))
}

// defaultRun 默认运行逻辑：如果指定--check-token则校验令牌，否则启动服务器
func defaultRun(cmd *cobra.Command, args []string) error {
	if checkToken != "" {
		return runCheckToken(cmd, checkToken)
	}
	return runServe(cmd, args)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./data")
		viper.AddConfigPath("$HOME/.perplexity-proxy")
	}

	config.BindEnv(viper.GetViper())

	// 配置文件可选，环境变量即可完成部署
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
