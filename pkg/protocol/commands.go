package protocol

// Command names. The same name is used by callers of the dispatch facade and
// as the native method name sent to the plugin.
const (
	// native-tts
	CmdInit             = "init"
	CmdSpeak            = "speak"
	CmdPause            = "pause"
	CmdResume           = "resume"
	CmdStop             = "stop"
	CmdSetPrimaryLang   = "set_primary_lang"
	CmdSetRate          = "set_rate"
	CmdSetPitch         = "set_pitch"
	CmdSetVoice         = "set_voice"
	CmdGetAllVoices     = "get_all_voices"
	CmdGetVoices        = "get_voices"
	CmdGetGranularities = "get_granularities"
	CmdGetVoiceID       = "get_voice_id"
	CmdGetSpeakingLang  = "get_speaking_lang"

	// native-bridge
	CmdAuthWithSafari        = "auth_with_safari"
	CmdCopyURI               = "copy_uri"
	CmdUseBackgroundAudio    = "use_background_audio"
	CmdInstallPackage        = "install_package"
	CmdSetSystemUIVisibility = "set_system_ui_visibility"
	CmdGetStatusBarHeight    = "get_status_bar_height"
	CmdGetSysFontsList       = "get_sys_fonts_list"
	CmdInterceptKeys         = "intercept_keys"
	CmdLockScreenOrientation = "lock_screen_orientation"
	CmdIAPInitialize         = "iap_initialize"
	CmdIAPFetchProducts      = "iap_fetch_products"
	CmdIAPPurchaseProduct    = "iap_purchase_product"
	CmdIAPRestorePurchases   = "iap_restore_purchases"

	// CmdRegisterListener subscribes to the TTS event stream. It is not
	// forwarded to native code.
	CmdRegisterListener = "register_listener"
)
