package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/idcheck/cmd/idcheck/cmd"
	"github.com/cucumber/godog"
)

// RegisterCLISteps registers steps that run idcheck and inspect its output.
func (testCtx *TestContext) RegisterCLISteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should have (\d+) keys$`, testCtx.theJSONShouldHaveKeys)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

// iRunCommand runs an idcheck command line in-process, inside the scenario
// directory and with the scenario environment.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "idcheck" {
		parts = parts[1:]
	}

	restore, err := testCtx.enter()
	if err != nil {
		return err
	}
	defer restore()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(parts)

	start := time.Now()
	err = root.ExecuteContext(ctx)
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

// enter switches to the scenario directory and environment and returns a
// function that undoes both.
func (testCtx *TestContext) enter() (func(), error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(testCtx.TempDir); err != nil {
		return nil, err
	}

	previous := make(map[string]*string, len(testCtx.EnvVars))
	for name, value := range testCtx.EnvVars {
		if old, ok := os.LookupEnv(name); ok {
			previous[name] = &old
		} else {
			previous[name] = nil
		}
		_ = os.Setenv(name, value)
	}

	return func() {
		for name, old := range previous {
			if old == nil {
				_ = os.Unsetenv(name)
			} else {
				_ = os.Setenv(name, *old)
			}
		}
		_ = os.Chdir(wd)
	}, nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s\nStderr: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) outputJSON() (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &data); err != nil {
		return nil, fmt.Errorf("output is not a JSON object: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	return data, nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.outputJSON()
	return err
}

func (testCtx *TestContext) theJSONShouldHaveKeys(n int) error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	if len(data) != n {
		return fmt.Errorf("expected %d keys, got %d: %v", n, len(data), data)
	}
	return nil
}

func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	return checkField(data, field, expected)
}

// checkField compares the value at a dotted path with expected. Lists are
// written as comma separated values and null as "null".
func checkField(data map[string]any, field, expected string) error {
	var current any = data
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot navigate into '%s' of field '%s'", part, field)
		}
		if current, ok = obj[part]; !ok {
			return fmt.Errorf("field '%s' not found in JSON", field)
		}
	}
	if actual := render(current); actual != expected {
		return fmt.Errorf("field '%s' is '%s', expected '%s'", field, actual, expected)
	}
	return nil
}

func render(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = render(item)
		}
		return strings.Join(items, ",")
	default:
		return fmt.Sprint(val)
	}
}

func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	full := testCtx.LastError.Error() + " " + testCtx.LastStderr
	if !strings.Contains(strings.ToLower(full), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, full)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", name, expected, data)
	}
	return nil
}
