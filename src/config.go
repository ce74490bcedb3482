package picaprs

/*------------------------------------------------------------------
 *
 * Purpose:	Read configuration information from a file.
 *
 * Description:	The file is YAML.  Anything left out keeps the
 *		value from DefaultConfig, which matches the original
 *		tracker firmware:
 *
 *			AD7ZJ-11 > APRS via WIDE2-2, 53 flags of TXDELAY,
 *			1200 baud AFSK from a 4 MHz timer, positions at
 *			:00 and :30, status at :15.
 *
 *		Command line options are applied on top by the
 *		caller.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Station  StationSection `yaml:"station"`
	Modem    ModemConfig    `yaml:"modem"`
	Output   OutputConfig   `yaml:"output"`
	PTT      PTTConfig      `yaml:"ptt"`
	GPS      GPSConfig      `yaml:"gps"`
	Beacon   BeaconConfig   `yaml:"beacon"`
	Console  ConsoleConfig  `yaml:"console"`
	TxLog    TxLogConfig    `yaml:"txlog"`
	TrackLog TrackLogConfig `yaml:"tracklog"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

type StationSection struct {
	Callsign string   `yaml:"callsign"` // CALL-SSID
	Dest     string   `yaml:"dest"`
	Path     []string `yaml:"path"`
	TxDelay  int      `yaml:"txdelay"` // Flags before the frame.
}

// ModemConfig gives the tone timing either as raw timer values,
// or in Hz and baud, which take precedence when set.
type ModemConfig struct {
	TimerHz     uint32 `yaml:"timer_hz"`
	MarkPeriod  uint32 `yaml:"mark_period"`
	SpacePeriod uint32 `yaml:"space_period"`
	BaudTicks   uint32 `yaml:"baud_ticks"`

	MarkHz  int `yaml:"mark_hz"`
	SpaceHz int `yaml:"space_hz"`
	Baud    int `yaml:"baud"`
}

const (
	OUTPUT_AUDIO = "audio"
	OUTPUT_WAV   = "wav"
	OUTPUT_GPIO  = "gpio"
)

type OutputConfig struct {
	Mode       string `yaml:"mode"`        // audio, wav or gpio
	Device     string `yaml:"device"`      // Sound card name; empty for the default.
	WAVFile    string `yaml:"wav_file"`    // For mode wav.
	SampleRate int    `yaml:"sample_rate"` // For audio and wav.
	Amplitude  int    `yaml:"amplitude"`   // Percent of full scale.

	GPIOChip  string        `yaml:"gpio_chip"`  // Resistor DAC, mode gpio.
	GPIOLines []int         `yaml:"gpio_lines"` // LSB first.
	Slack     time.Duration `yaml:"slack"`      // Allowed lateness before a timing violation.
}

type PTTConfig struct {
	Method string        `yaml:"method"` // none, gpio or serial
	Device string        `yaml:"device"` // gpiochip or tty
	Line   string        `yaml:"line"`   // GPIO offset, or RTS / DTR
	Invert bool          `yaml:"invert"`
	Tail   time.Duration `yaml:"tail"` // Hold after the last bit.
}

const (
	GPS_SOURCE_NONE   = "none"
	GPS_SOURCE_SERIAL = "serial"
	GPS_SOURCE_GPSD   = "gpsd"
)

type GPSConfig struct {
	Source string `yaml:"source"` // serial, gpsd or none
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	GPSD   string `yaml:"gpsd"` // host:port
}

type BeaconConfig struct {
	PositionSlots []int  `yaml:"position_slots"` // Seconds past the minute.
	StatusSlots   []int  `yaml:"status_slots"`
	StatusPrefix  string `yaml:"status_prefix"`
	StatusComment string `yaml:"status_comment"`
	Symbol        string `yaml:"symbol"` // Two characters, table then symbol.
}

type ConsoleConfig struct {
	Device string        `yaml:"device"` // Empty for stdin.
	Baud   int           `yaml:"baud"`
	Wait   time.Duration `yaml:"wait"` // Window for pressing '`' at start up.
}

type TxLogConfig struct {
	Dir     string `yaml:"dir"` // Empty disables it.
	Pattern string `yaml:"pattern"`
}

type TrackLogConfig struct {
	Path string `yaml:"path"` // Empty disables it.
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables it.
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

func DefaultConfig() Config {
	var timing = DefaultToneTiming()

	return Config{
		Station: StationSection{
			Callsign: "AD7ZJ-11",
			Dest:     "APRS",
			Path:     []string{"WIDE2-2"},
			TxDelay:  53,
		},
		Modem: ModemConfig{
			TimerHz:     timing.TimerHz,
			MarkPeriod:  timing.MarkPeriod,
			SpacePeriod: timing.SpacePeriod,
			BaudTicks:   timing.BaudTicks,
		},
		Output: OutputConfig{
			Mode:       OUTPUT_AUDIO,
			SampleRate: 44100,
			Amplitude:  50,
			GPIOChip:   "gpiochip0",
			GPIOLines:  []int{17, 18, 27, 22},
			Slack:      50 * time.Microsecond,
		},
		PTT: PTTConfig{
			Method: PTT_METHOD_NONE,
			Tail:   DEFAULT_TX_TAIL,
		},
		GPS: GPSConfig{
			Source: GPS_SOURCE_SERIAL,
			Device: "/dev/ttyS0",
			Baud:   DEFAULT_GPS_BAUD,
			GPSD:   DEFAULT_GPSD_ADDR,
		},
		Beacon: BeaconConfig{
			PositionSlots: DEFAULT_POSITION_SLOTS,
			StatusSlots:   DEFAULT_STATUS_SLOTS,
			StatusPrefix:  DEFAULT_STATUS_PREFIX,
			StatusComment: DEFAULT_STATUS_COMMENT,
			Symbol:        "/O",
		},
		Console: ConsoleConfig{
			Wait: 3 * time.Second,
		},
		TxLog: TxLogConfig{
			Pattern: DEFAULT_TXLOG_PATTERN,
		},
		MQTT: MQTTConfig{
			TopicPrefix: DEFAULT_MQTT_TOPIC_PREFIX,
		},
	}
}

// LoadConfig reads path over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	var data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	var config = DefaultConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// StationConfig converts the station section.
func (c *Config) StationConfig() (StationConfig, error) {
	var source, err = ParseAddress(c.Station.Callsign)
	if err != nil {
		return StationConfig{}, fmt.Errorf("station callsign: %w", err)
	}

	dest, err := ParseCallsign(c.Station.Dest)
	if err != nil {
		return StationConfig{}, fmt.Errorf("station dest: %w", err)
	}

	var sc = StationConfig{
		Call:    source.Call,
		SSID:    source.SSID,
		Dest:    dest,
		TxDelay: c.Station.TxDelay,
	}

	for _, p := range c.Station.Path {
		var r, err = ParseAddress(p)
		if err != nil {
			return StationConfig{}, fmt.Errorf("station path: %w", err)
		}
		sc.Relays = append(sc.Relays, r)
	}

	return sc, sc.Validate()
}

// ToneTiming converts the modem section.
func (c *Config) ToneTiming() (ToneTiming, error) {
	var m = c.Modem

	if m.MarkHz != 0 || m.SpaceHz != 0 || m.Baud != 0 {
		return NewToneTiming(int(m.TimerHz), m.MarkHz, m.SpaceHz, m.Baud)
	}

	var t = ToneTiming{
		TimerHz:     m.TimerHz,
		MarkPeriod:  m.MarkPeriod,
		SpacePeriod: m.SpacePeriod,
		BaudTicks:   m.BaudTicks,
	}

	return t, t.Validate()
}

// MicEOptions converts the beacon symbol.
func (c *Config) MicEOptions() MicEOptions {
	var o = DefaultMicEOptions()
	if len(c.Beacon.Symbol) == 2 {
		o.SymbolTable = c.Beacon.Symbol[0]
		o.Symbol = c.Beacon.Symbol[1]
	}

	return o
}

func validSlots(name string, slots []int) error {
	for _, s := range slots {
		if s < 0 || s > 59 {
			return fmt.Errorf("%w: %s slot %d is not a second 0-59", ErrConfig, name, s)
		}
	}

	return nil
}

// Validate checks everything that can be checked without opening devices.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.StationConfig(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.ToneTiming(); err != nil {
		errs = append(errs, err)
	}

	switch c.Output.Mode {
	case OUTPUT_AUDIO, OUTPUT_WAV:
		if c.Output.SampleRate < 8000 {
			errs = append(errs, fmt.Errorf("sample rate %d too low", c.Output.SampleRate))
		}
		if c.Output.Amplitude < 1 || c.Output.Amplitude > 100 {
			errs = append(errs, fmt.Errorf("amplitude %d%% outside 1-100", c.Output.Amplitude))
		}
		if c.Output.Mode == OUTPUT_WAV && c.Output.WAVFile == "" {
			errs = append(errs, errors.New("output mode wav needs wav_file"))
		}
	case OUTPUT_GPIO:
		if len(c.Output.GPIOLines) != DAC_BITS {
			errs = append(errs, fmt.Errorf("gpio output needs %d lines, got %d", DAC_BITS, len(c.Output.GPIOLines)))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown output mode %q", c.Output.Mode))
	}

	switch c.PTT.Method {
	case "", PTT_METHOD_NONE, PTT_METHOD_GPIO, PTT_METHOD_SERIAL:
	default:
		errs = append(errs, fmt.Errorf("unknown PTT method %q", c.PTT.Method))
	}

	switch c.GPS.Source {
	case "", GPS_SOURCE_NONE, GPS_SOURCE_SERIAL, GPS_SOURCE_GPSD:
	default:
		errs = append(errs, fmt.Errorf("unknown GPS source %q", c.GPS.Source))
	}

	if err := validSlots("position", c.Beacon.PositionSlots); err != nil {
		errs = append(errs, err)
	}
	if err := validSlots("status", c.Beacon.StatusSlots); err != nil {
		errs = append(errs, err)
	}

	if c.Beacon.Symbol != "" && len(c.Beacon.Symbol) != 2 {
		errs = append(errs, fmt.Errorf("symbol %q must be table and code, e.g. /O", c.Beacon.Symbol))
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt enabled without a broker"))
	}

	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos %d outside 0-2", c.MQTT.QoS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}

	return nil
}
