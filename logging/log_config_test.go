package logging

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func verifySetLevels(registry *Registry, expectedMatches map[string]string) bool {
	for name, level := range expectedMatches {
		logger, ok := registry.loggerNamed(name)
		if !ok || !strings.EqualFold(level, logger.GetLevel().String()) {
			return false
		}
	}
	return true
}

func createTestRegistry(loggerNames []string) *Registry {
	manager := newRegistry()
	for _, name := range loggerNames {
		manager.registerLogger(name, NewBlankLogger(name))
	}
	return manager
}

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	type testCfg struct {
		pattern string
		isValid bool
	}

	tests := []testCfg{
		// Valid patterns
		{"skeletal.tracking", true},
		{"skeletal.tracking.*", true},
		{"skeletal.*.tracking", true},
		{"skeletal.*.*", true},
		{"*.tracking", true},
		{"*", true},

		// Invalid patterns
		{"skeletal..tracking", false},
		{"skeletal.tracking.", false},
		{".skeletal.tracking", false},
		{"skeletal.tracking.**", false},
		{"skeletal.**.tracking", false},

		// Invalid patterns with special characters
		{"_.skeletal.tracking", false},
		{"-.skeletal", false},
		{"skeletal.-", false},
		{"skeletal.-.tracking", false},
		{"skeletal._.tracking", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.pattern, func(t *testing.T) {
			t.Parallel()
			test.That(t, validatePattern(tc.pattern), test.ShouldEqual, tc.isValid)
		})
	}
}

func TestUpdateLoggerRegistry(t *testing.T) {
	type testCfg struct {
		loggerConfig    []LoggerPatternConfig
		loggerNames     []string
		expectedMatches map[string]string
	}

	tests := []testCfg{
		{
			loggerConfig: []LoggerPatternConfig{
				{
					Pattern: "skeletal.tracking",
					Level:   "WARN",
				},
			},
			loggerNames: []string{
				"skeletal.tracking",
				"skeletal.camera.session",
				"skeletal.display",
			},
			expectedMatches: map[string]string{
				"skeletal.tracking": "WARN",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{
				{
					Pattern: "skeletal.*",
					Level:   "DEBUG",
				},
			},
			loggerNames: []string{
				"skeletal.tracking",
				"skeletal.pose.session",
				"skeletal.tracking.loop.session",
			},
			expectedMatches: map[string]string{
				"skeletal.tracking":              "DEBUG",
				"skeletal.pose.session":          "DEBUG",
				"skeletal.tracking.loop.session": "DEBUG",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{
				{
					Pattern: "skeletal.*.session",
					Level:   "ERROR",
				},
			},
			loggerNames: []string{
				"skeletal.camera.session",
				"skeletal.pose.session",
				"skeletal.tracking.pose",
			},
			expectedMatches: map[string]string{
				"skeletal.camera.session": "ERROR",
				"skeletal.pose.session":   "ERROR",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{
				{
					Pattern: "skeletal.*",
					Level:   "DEBUG",
				},
				{
					Pattern: "skeletal.tracking",
					Level:   "WARN",
				},
			},
			loggerNames: []string{
				"skeletal.tracking",
			},
			expectedMatches: map[string]string{
				"skeletal.tracking": "WARN",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{
				{
					Pattern: "skeletal.*.session",
					Level:   "WARN",
				},
			},
			loggerNames: []string{
				"skeletal.camera.session",
				"skeletal.tracking.replay.session",
			},
			expectedMatches: map[string]string{
				"skeletal.camera.session":          "WARN",
				"skeletal.tracking.replay.session": "WARN",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{
				{
					Pattern: "_.*.session",
					Level:   "DEBUG",
				},
			},
			loggerNames: []string{
				"skeletal.tracking",
			},
			expectedMatches: map[string]string{},
		},
		{
			loggerConfig: []LoggerPatternConfig{
				{
					Pattern: "a.b",
					Level:   "DEBUG",
				},
			},
			loggerNames: []string{
				"a.b.c",
			},
			expectedMatches: map[string]string{
				"a.b.c": "INFO",
			},
		},
	}

	for _, tc := range tests {
		testRegistry := createTestRegistry(tc.loggerNames)

		err := testRegistry.UpdateConfig(tc.loggerConfig, NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, verifySetLevels(testRegistry, tc.expectedMatches), test.ShouldBeTrue)
	}
}
