package cmds

import (
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile holds the settings shared by all commands. Values come from an
// optional config file and from environment variables prefixed with
// PQCONN, e.g. "writer.compression" is read from PQCONN_WRITER_COMPRESSION.
type Profile struct {
	Log      LogConfig      `mapstructure:"log"`
	Reader   ReaderConfig   `mapstructure:"reader"`
	Writer   WriterConfig   `mapstructure:"writer"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type ReaderConfig struct {
	RowGroupColumn string `mapstructure:"row_group_column"`
	ValidateCRC    bool   `mapstructure:"validate_crc"`
}

type WriterConfig struct {
	Compression  string `mapstructure:"compression"`
	RowGroupRows int    `mapstructure:"row_group_rows"`
	Creator      string `mapstructure:"creator"`
}

type ResolverConfig struct {
	ReadAhead string        `mapstructure:"read_ahead"`
	SpoolDir  string        `mapstructure:"spool_dir"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type IngestConfig struct {
	BatchSize int    `mapstructure:"batch_size"`
	Table     string `mapstructure:"table"`
}

func defaultProfile() *Profile {
	return &Profile{
		Log:      LogConfig{Level: "info", Format: "text"},
		Reader:   ReaderConfig{RowGroupColumn: "RowGroup", ValidateCRC: true},
		Writer:   WriterConfig{Compression: "snappy", RowGroupRows: 10000, Creator: "parquet-connector"},
		Resolver: ResolverConfig{ReadAhead: "1MiB", Timeout: 5 * time.Minute},
		Ingest:   IngestConfig{BatchSize: 1000, Table: "data"},
	}
}

// loadProfile reads the profile. An empty path looks for
// parquet-connector.{yaml,json,toml} in the working directory; a missing
// default file is not an error, a missing explicit one is.
func loadProfile(path string) (*Profile, error) {
	p := defaultProfile()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("parquet-connector")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("PQCONN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, p)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading profile failed")
		}
	}

	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "decoding profile failed")
	}
	return p, nil
}

// bindEnvs registers every key of cfg so that AutomaticEnv also applies
// while unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string(nil), parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
