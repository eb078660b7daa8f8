package app

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyQuitForce     = "Q"
	KeyCtrlC         = "ctrl+c"
	KeyTab           = "tab"
	KeyUp            = "up"
	KeyDown          = "down"
	KeyJ             = "j"
	KeyK             = "k"
	KeyPgUp          = "pgup"
	KeyPgDown        = "pgdown"
	KeySpace         = " "
	KeyEnter         = "enter"
	KeyEsc           = "esc"
	KeyUnlink        = "x"
	KeyFinalize      = "f"
	KeyFinalizeAll   = "F"
	KeyUndo          = "u"
	KeyRedo          = "ctrl+r"
	KeySave          = "s"
	KeyAutoAlign     = "A"
	KeyEmbed         = "E"
	KeyExport        = "X"
	KeySearch        = "/"
	KeyNextMatch     = "n"
	KeyEdit          = "e"
	KeyAddBelow      = "o"
	KeyAddAbove      = "O"
	KeyDelete        = "d"
	KeyJoinDown      = "J"
	KeyJoinUp        = "K"
	KeyIndentRight   = ">"
	KeyIndentLeft    = "<"
	KeyExpandSpeak   = "S"
	KeySplit         = "alt+enter"
	KeyClearProblem  = "0"
	KeySpeaker       = "w"
	KeyCustomProblem = "p"
	KeyScores        = "v"

	KeyOpenTranscript = "t"
	KeyOpenMinutes    = "m"
)
