package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/waveportal/waved/internal/core/application"
	"github.com/waveportal/waved/internal/core/ports"
	"github.com/waveportal/waved/internal/infrastructure/contract/waveportal"
	scheduler "github.com/waveportal/waved/internal/infrastructure/scheduler/gocron"
	envunlocker "github.com/waveportal/waved/internal/infrastructure/unlocker/env"
	fileunlocker "github.com/waveportal/waved/internal/infrastructure/unlocker/file"
	promptunlocker "github.com/waveportal/waved/internal/infrastructure/unlocker/prompt"
	keystorewallet "github.com/waveportal/waved/internal/infrastructure/wallet/keystore"
	nowallet "github.com/waveportal/waved/internal/infrastructure/wallet/none"
	privkeywallet "github.com/waveportal/waved/internal/infrastructure/wallet/privkey"
)

const dialTimeout = 30 * time.Second

var (
	supportedWallets = supportedType{
		"keystore": {},
		"privkey":  {},
		"none":     {},
	}
	supportedUnlockers = supportedType{
		"env":    {},
		"file":   {},
		"prompt": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
)

type Config struct {
	Datadir         string
	Host            string
	Port            uint32
	LogLevel        int
	RPCURL          string
	ContractAddress string
	ChainID         int64
	GasLimit        uint64
	StatusInterval  int64

	WalletType       string
	KeystoreDir      string
	PrivateKey       string
	UnlockerType     string
	UnlockerFilePath string
	UnlockerPassword string
	SchedulerType    string

	unlocker  ports.Unlocker
	wallet    ports.WalletAdapter
	contract  ports.ContractClient
	scheduler ports.SchedulerService
	svc       application.Service
}

var (
	Datadir          = "DATADIR"
	Host             = "HOST"
	Port             = "PORT"
	LogLevel         = "LOG_LEVEL"
	RPCURL           = "RPC_URL"
	ContractAddress  = "CONTRACT_ADDRESS"
	ChainID          = "CHAIN_ID"
	GasLimit         = "GAS_LIMIT"
	StatusInterval   = "STATUS_INTERVAL"
	WalletType       = "WALLET_TYPE"
	KeystoreDir      = "KEYSTORE_DIR"
	PrivateKey       = "PRIVATE_KEY"
	UnlockerType     = "UNLOCKER_TYPE"
	UnlockerFilePath = "UNLOCKER_FILE_PATH"
	UnlockerPassword = "UNLOCKER_PASSWORD"
	SchedulerType    = "SCHEDULER_TYPE"

	defaultDatadir         = btcutil.AppDataDir("waved", false)
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 7070
	defaultLogLevel        = 4
	defaultRPCURL          = "ws://localhost:8546"
	defaultContractAddress = "0x524FaaDf97c1880eECcf457EaE1c5c8d39830be2"
	defaultChainID         = 4 // rinkeby
	defaultGasLimit        = 300000
	defaultStatusInterval  = 60
	defaultWalletType      = "keystore"
	defaultSchedulerType   = "gocron"
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("WAVE")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Host, DefaultHost)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(RPCURL, defaultRPCURL)
	viper.SetDefault(ContractAddress, defaultContractAddress)
	viper.SetDefault(ChainID, defaultChainID)
	viper.SetDefault(GasLimit, defaultGasLimit)
	viper.SetDefault(StatusInterval, defaultStatusInterval)
	viper.SetDefault(WalletType, defaultWalletType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	datadir := viper.GetString(Datadir)
	keystoreDir := viper.GetString(KeystoreDir)
	if len(keystoreDir) <= 0 {
		keystoreDir = filepath.Join(datadir, "keystore")
	}

	return &Config{
		Datadir:          datadir,
		Host:             viper.GetString(Host),
		Port:             viper.GetUint32(Port),
		LogLevel:         viper.GetInt(LogLevel),
		RPCURL:           viper.GetString(RPCURL),
		ContractAddress:  viper.GetString(ContractAddress),
		ChainID:          viper.GetInt64(ChainID),
		GasLimit:         viper.GetUint64(GasLimit),
		StatusInterval:   viper.GetInt64(StatusInterval),
		WalletType:       viper.GetString(WalletType),
		KeystoreDir:      keystoreDir,
		PrivateKey:       viper.GetString(PrivateKey),
		UnlockerType:     viper.GetString(UnlockerType),
		UnlockerFilePath: viper.GetString(UnlockerFilePath),
		UnlockerPassword: viper.GetString(UnlockerPassword),
		SchedulerType:    viper.GetString(SchedulerType),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedWallets.supports(c.WalletType) {
		return fmt.Errorf("wallet type not supported, please select one of: %s", supportedWallets)
	}
	if len(c.UnlockerType) > 0 && !supportedUnlockers.supports(c.UnlockerType) {
		return fmt.Errorf("unlocker type not supported, please select one of: %s", supportedUnlockers)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if len(c.RPCURL) <= 0 {
		return fmt.Errorf("missing rpc url")
	}
	if !strings.HasPrefix(c.RPCURL, "ws") && !strings.HasSuffix(c.RPCURL, ".ipc") {
		log.Warnf("rpc url %s does not support subscriptions, live waves won't be received", c.RPCURL)
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid contract address %s", c.ContractAddress)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("invalid chain id, must be positive")
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("invalid gas limit, must be positive")
	}
	if c.StatusInterval < 0 {
		return fmt.Errorf("invalid status interval, must not be negative")
	}

	if err := c.unlockerService(); err != nil {
		return err
	}
	if err := c.walletService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.contractService(); err != nil {
		c.wallet.Close()
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) UnlockerService() ports.Unlocker {
	return c.unlocker
}

func (c *Config) unlockerService() error {
	unlockerType := c.UnlockerType
	if len(unlockerType) <= 0 {
		if c.WalletType != "keystore" {
			return nil
		}
		unlockerType = "prompt"
	}

	var svc ports.Unlocker
	var err error
	switch unlockerType {
	case "file":
		svc, err = fileunlocker.NewService(c.UnlockerFilePath)
	case "env":
		svc, err = envunlocker.NewService(c.UnlockerPassword)
	case "prompt":
		svc, err = promptunlocker.NewService()
	default:
		err = fmt.Errorf("unknown unlocker type")
	}
	if err != nil {
		return err
	}
	c.unlocker = svc
	return nil
}

func (c *Config) walletService() error {
	var svc ports.WalletAdapter
	var err error
	switch c.WalletType {
	case "keystore":
		svc, err = keystorewallet.NewService(
			c.KeystoreDir, filepath.Join(c.Datadir, "wallet"), c.ChainID,
			c.unlocker, log.New(),
		)
	case "privkey":
		svc, err = privkeywallet.NewService(c.PrivateKey, c.ChainID)
	case "none":
		svc = nowallet.NewService()
	default:
		err = fmt.Errorf("unknown wallet type")
	}
	if err != nil {
		return err
	}

	c.wallet = svc
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	var err error
	switch c.SchedulerType {
	case "gocron":
		svc = scheduler.NewScheduler()
	default:
		err = fmt.Errorf("unknown scheduler type")
	}
	if err != nil {
		return err
	}

	c.scheduler = svc
	return nil
}

func (c *Config) contractService() error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	svc, err := waveportal.NewService(ctx, c.RPCURL, c.ContractAddress)
	if err != nil {
		return err
	}

	c.contract = svc
	return nil
}

func (c *Config) appService() error {
	if c.wallet == nil || c.contract == nil {
		return fmt.Errorf("config not validated")
	}

	c.svc = application.NewService(
		c.GasLimit, c.StatusInterval, c.wallet, c.contract, c.scheduler,
	)
	return nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
