package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	Host struct {
		Identity                    string `json:"identity"`
		SealingKey                  string `json:"sealing_key"`
		ConnectedCanViewConnections bool   `json:"connected_can_view_connections"`
		ConnectedCanViewWhoIFollow  bool   `json:"connected_can_view_who_i_follow"`
		Version                     string `json:"version"`
	} `json:"host,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Outbox struct {
		TickInterval Duration `json:"tick_interval"`
		BatchSize    int      `json:"batch_size"`
		MaxAttempts  int      `json:"max_attempts"`
		BackoffBase  Duration `json:"backoff_base"`
		BackoffCap   Duration `json:"backoff_cap"`
		ReclaimAfter Duration `json:"reclaim_after"`
	} `json:"outbox,omitempty"`

	Peer struct {
		RequestTimeout       Duration `json:"request_timeout"`
		OperationMaxAttempts int      `json:"operation_max_attempts"`
		OperationRetryDelay  Duration `json:"operation_retry_delay"`
	} `json:"peer,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Host: Host{
			Identity:                    jsonCfg.Host.Identity,
			SealingKey:                  jsonCfg.Host.SealingKey,
			ConnectedCanViewConnections: jsonCfg.Host.ConnectedCanViewConnections,
			ConnectedCanViewWhoIFollow:  jsonCfg.Host.ConnectedCanViewWhoIFollow,
			Version:                     jsonCfg.Host.Version,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Outbox: Outbox{
			TickInterval: time.Duration(jsonCfg.Outbox.TickInterval),
			BatchSize:    jsonCfg.Outbox.BatchSize,
			MaxAttempts:  jsonCfg.Outbox.MaxAttempts,
			BackoffBase:  time.Duration(jsonCfg.Outbox.BackoffBase),
			BackoffCap:   time.Duration(jsonCfg.Outbox.BackoffCap),
			ReclaimAfter: time.Duration(jsonCfg.Outbox.ReclaimAfter),
		},
		Peer: Peer{
			RequestTimeout:       time.Duration(jsonCfg.Peer.RequestTimeout),
			OperationMaxAttempts: jsonCfg.Peer.OperationMaxAttempts,
			OperationRetryDelay:  time.Duration(jsonCfg.Peer.OperationRetryDelay),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
