package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticSource struct {
	cfg Config
	err error
}

func (s staticSource) Load() (Config, error) {
	return s.cfg, s.err
}

func TestResolveOverridesWin(t *testing.T) {
	source := staticSource{cfg: Config{
		URL:      "https://config.example.com",
		Username: "configuser",
		Password: "configpass",
	}}

	cfg, err := Resolve(Config{
		URL:      "https://flag.example.com",
		Username: "flaguser",
		Password: "flagpass",
	}, source)

	assert.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.URL)
	assert.Equal(t, "flaguser", cfg.Username)
	assert.Equal(t, "flagpass", cfg.Password)
}

func TestResolveFillsFromSource(t *testing.T) {
	source := staticSource{cfg: Config{
		URL:      "https://config.example.com",
		Username: "configuser",
		Password: "configpass",
	}}

	cfg, err := Resolve(Config{Username: "flaguser"}, source)

	assert.NoError(t, err)
	assert.Equal(t, "https://config.example.com", cfg.URL)
	assert.Equal(t, "flaguser", cfg.Username)
	assert.Equal(t, "configpass", cfg.Password)
}

func TestResolveSourceOrder(t *testing.T) {
	first := staticSource{cfg: Config{URL: "https://first.example.com"}}
	second := staticSource{cfg: Config{
		URL:      "https://second.example.com",
		Username: "seconduser",
		Password: "secondpass",
	}}

	cfg, err := Resolve(Config{}, first, second)

	assert.NoError(t, err)
	assert.Equal(t, "https://first.example.com", cfg.URL)
	assert.Equal(t, "seconduser", cfg.Username)
}

func TestResolveMissingEverything(t *testing.T) {
	_, err := Resolve(Config{}, staticSource{})

	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Missing, "url")
	assert.Contains(t, resErr.Missing, "user")
}

func TestResolveMissingPassword(t *testing.T) {
	_, err := Resolve(Config{URL: "https://zbx.example.com", Username: "admin"}, staticSource{})

	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
	assert.Equal(t, []string{"password"}, resErr.Missing)
}

func TestResolveTokenInsteadOfCredentials(t *testing.T) {
	cfg, err := Resolve(Config{URL: "https://zbx.example.com"}, staticSource{cfg: Config{Token: "abc"}})

	assert.NoError(t, err)
	assert.Equal(t, "abc", cfg.Token)
	assert.Empty(t, cfg.Username)
}

func TestFileSourceReadsTOMLConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zabbix-cli.toml")
	content := `
[api]
url = "https://zbx.example.com/api_jsonrpc.php"
username = "Admin"
password = "zabbix"
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := FileSource{ConfigPath: path}.Load()

	assert.NoError(t, err)
	assert.Equal(t, "https://zbx.example.com/api_jsonrpc.php", cfg.URL)
	assert.Equal(t, "Admin", cfg.Username)
	assert.Equal(t, "zabbix", cfg.Password)
}

func TestFileSourceReadsAuthFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".zabbix_cli_auth")
	assert.NoError(t, os.WriteFile(path, []byte("Admin::zabbix\n"), 0600))

	cfg, err := FileSource{AuthPath: path}.Load()

	assert.NoError(t, err)
	assert.Equal(t, "Admin", cfg.Username)
	assert.Equal(t, "zabbix", cfg.Password)
}

func TestFileSourceReadsTokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".zabbix-cli_auth_token")
	token := "0123456789abcdef0123456789abcdef"
	assert.NoError(t, os.WriteFile(path, []byte("cli::"+token), 0600))

	cfg, err := FileSource{TokenPath: path}.Load()

	assert.NoError(t, err)
	assert.Equal(t, token, cfg.Token)
}

func TestFileSourceRejectsMalformedTokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".zabbix-cli_auth_token")
	assert.NoError(t, os.WriteFile(path, []byte("cli::tooshort"), 0600))

	cfg, err := FileSource{TokenPath: path}.Load()

	assert.NoError(t, err)
	assert.Empty(t, cfg.Token)
}

func TestFileSourceMissingFiles(t *testing.T) {
	dir := t.TempDir()

	cfg, err := FileSource{
		ConfigPath: filepath.Join(dir, "nope.toml"),
		AuthPath:   filepath.Join(dir, "nope_auth"),
		TokenPath:  filepath.Join(dir, "nope_token"),
	}.Load()

	assert.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestEnvSource(t *testing.T) {
	t.Setenv("ZABBIX_URL", "https://env.example.com")
	t.Setenv("ZABBIX_USER", "envuser")
	t.Setenv("ZABBIX_PASSWORD", "envpass")

	cfg, err := EnvSource{}.Load()

	assert.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.URL)
	assert.Equal(t, "envuser", cfg.Username)
	assert.Equal(t, "envpass", cfg.Password)
}
