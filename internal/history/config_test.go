package history

import "testing"

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "shipwright", Password: "pw",
				Database: "shipwright_history", SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
			},
		},
		{
			name: "missing password",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "shipwright", Database: "shipwright_history",
				MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "shipwright", Password: "pw", Database: "shipwright_history",
				MaxOpenConns: 5, MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "shipwright", Password: "pw", Database: "shipwright_history",
				MaxOpenConns: 0, MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "shipwright", Password: "pw", Database: "shipwright_history",
				MaxOpenConns: 10, MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMeanStddev(t *testing.T) {
	mean, stddev := meanStddev([]float64{10, 10, 10})
	if mean != 10 || stddev != 0 {
		t.Fatalf("expected mean=10 stddev=0, got mean=%v stddev=%v", mean, stddev)
	}

	mean, stddev = meanStddev(nil)
	if mean != 0 || stddev != 0 {
		t.Fatalf("expected zero value for empty input, got mean=%v stddev=%v", mean, stddev)
	}

	mean, stddev = meanStddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Fatalf("expected mean=5, got %v", mean)
	}
	if stddev < 2.1 || stddev > 2.2 {
		t.Fatalf("expected stddev near 2.138, got %v", stddev)
	}
}
