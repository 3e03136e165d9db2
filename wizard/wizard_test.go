package wizard

import (
	"testing"

	"cmdoverlay/model"
	"cmdoverlay/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teleport() model.Command {
	return model.Command{Template: ".tp [X] [Y]", Label: "Teleport", Params: []string{"X", "Y"}}
}

func bloodCommand() model.Command {
	return model.Command{
		Template: ".bl cst [BloodStat]",
		Label:    "Blood stat",
		Params:   []string{"BloodStat"},
		Options:  map[string][]string{"BloodStat": {"Warrior", "Rogue", "Brute"}},
	}
}

func TestStart_NoParamsCompletesImmediately(t *testing.T) {
	s := Start(model.Command{Template: ".help"})

	assert.True(t, s.Done())
	assert.Empty(t, s.Values())
	_, ok := s.Prompt()
	assert.False(t, ok)

	got, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, ".help", got)
}

func TestSession_FreeTextFlow(t *testing.T) {
	s := Start(teleport())

	p, ok := s.Prompt()
	require.True(t, ok)
	assert.Equal(t, "X", p.Param)
	assert.Equal(t, ModeFreeText, p.Mode)
	assert.Equal(t, 0, p.Index)
	assert.Equal(t, 2, p.Total)

	require.NoError(t, s.Submit("  10 "))
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, StateAwaiting, s.State())

	p, _ = s.Prompt()
	assert.Equal(t, "Y", p.Param)
	require.NoError(t, s.Submit("20"))

	assert.True(t, s.Done())
	assert.Equal(t, []string{"10", "20"}, s.Values())
	got, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, ".tp 10 20", got)
}

func TestSession_BlankValueDoesNotAdvance(t *testing.T) {
	s := Start(teleport())

	for _, blank := range []string{"", "   ", "\t\n"} {
		err := s.Submit(blank)
		assert.ErrorIs(t, err, ErrEmptyValue)
		assert.Equal(t, 0, s.Index())
	}
	assert.Empty(t, s.Values())
}

func TestSession_ChoiceFlow(t *testing.T) {
	s := Start(bloodCommand())

	p, ok := s.Prompt()
	require.True(t, ok)
	assert.Equal(t, ModeChoice, p.Mode)
	assert.Equal(t, []string{"Warrior", "Rogue", "Brute"}, p.Choices)

	err := s.Submit("rogue")
	assert.ErrorIs(t, err, ErrNotAnOption)
	assert.Equal(t, 0, s.Index())

	require.NoError(t, s.Submit("Rogue"))
	got, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, ".bl cst 2", got)
}

func TestSession_PromptChoicesDoNotAliasCommand(t *testing.T) {
	cmd := bloodCommand()
	s := Start(cmd)

	p, _ := s.Prompt()
	p.Choices[0] = "Scholar"

	assert.Equal(t, "Warrior", cmd.Options["BloodStat"][0])
	assert.Equal(t, "Warrior", s.Command().Options["BloodStat"][0])

	require.NoError(t, s.Choose(0))
	got, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, ".bl cst 1", got)
}

func TestSession_ChooseByIndex(t *testing.T) {
	s := Start(bloodCommand())

	assert.ErrorIs(t, s.Choose(3), ErrNotAnOption)
	assert.ErrorIs(t, s.Choose(-1), ErrNotAnOption)
	require.NoError(t, s.Choose(2))

	got, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, ".bl cst 3", got)
}

func TestSession_ChooseInFreeTextMode(t *testing.T) {
	s := Start(teleport())
	assert.ErrorIs(t, s.Choose(0), ErrNotAnOption)
}

func TestSession_EmptyOptionListIsFreeText(t *testing.T) {
	cmd := teleport()
	cmd.Options = map[string][]string{"X": {}}
	s := Start(cmd)

	p, _ := s.Prompt()
	assert.Equal(t, ModeFreeText, p.Mode)
	assert.Nil(t, p.Choices)
}

func TestSession_Cancel(t *testing.T) {
	s := Start(teleport())
	require.NoError(t, s.Submit("10"))

	s.Cancel()

	assert.Equal(t, StateCancelled, s.State())
	assert.False(t, s.Done())
	assert.Empty(t, s.Values())
	_, err := s.Result()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, s.Submit("20"), ErrCancelled)
}

func TestSession_SubmitAfterComplete(t *testing.T) {
	s := Start(bloodCommand())
	require.NoError(t, s.Submit("Brute"))
	assert.ErrorIs(t, s.Submit("Rogue"), ErrFinished)

	s.Cancel()
	assert.Equal(t, StateComplete, s.State())
}

func TestSession_DuplicateParamsPromptOnce(t *testing.T) {
	s := Start(model.Command{Template: "[A] [A] [B]", Params: []string{"A", "B", "A"}})

	assert.Equal(t, []string{"A", "B"}, s.Params())
	require.NoError(t, s.Submit("x"))
	require.NoError(t, s.Submit("y"))

	got, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, "x x y", got)
}

func TestSession_Defaults(t *testing.T) {
	s := Start(teleport(), WithDefaults(map[string]string{"X": "42"}))

	p, _ := s.Prompt()
	assert.Equal(t, "42", p.Default)
	require.NoError(t, s.Submit(p.Default))

	p, _ = s.Prompt()
	assert.Empty(t, p.Default)
}

func TestSession_CustomResolver(t *testing.T) {
	r := runner.Resolver{Encodings: []runner.Encoding{
		{Prefix: ".tp", Param: "X", Encode: func(v string, _ []string) string { return "<" + v + ">" }},
	}}
	s := Start(teleport(), WithResolver(r))
	require.NoError(t, s.Submit("1"))
	require.NoError(t, s.Submit("2"))

	got, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, ".tp <1> 2", got)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "choice", ModeChoice.String())
	assert.Equal(t, "text", ModeFreeText.String())
}
