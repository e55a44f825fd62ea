package polling

// User-facing failure texts by mode and whether a baseline was preserved.
const (
	msgTimeoutInitial          = "Таймаут генерации insights. Попробуйте обновить страницу."
	msgTimeoutRegenerate       = "Таймаут регенерации insights. Попробуйте еще раз."
	msgTimeoutRegenerateKept   = "Таймаут регенерации insights. Исходные insights сохранены. Попробуйте еще раз."
	msgPollFailedInitial       = "Ошибка при генерации insights"
	msgPollFailedRegenerate    = "Ошибка при регенерации insights"
	msgPollFailedRegenKept     = "Ошибка при регенерации insights. Исходные insights сохранены."
	msgTriggerFailedInitial    = "Не удалось запустить генерацию insights"
	msgTriggerFailedRegenerate = "Не удалось запустить регенерацию insights"
	msgTriggerFailedRegenKept  = "Не удалось запустить регенерацию insights. Исходные insights сохранены."
)

type failureKind int

const (
	failTrigger failureKind = iota
	failPoll
	failTimeout
)

func failureMessage(kind failureKind, mode Mode, hasBaseline bool) string {
	if mode != ModeRegenerate {
		switch kind {
		case failTrigger:
			return msgTriggerFailedInitial
		case failPoll:
			return msgPollFailedInitial
		default:
			return msgTimeoutInitial
		}
	}
	switch kind {
	case failTrigger:
		if hasBaseline {
			return msgTriggerFailedRegenKept
		}
		return msgTriggerFailedRegenerate
	case failPoll:
		if hasBaseline {
			return msgPollFailedRegenKept
		}
		return msgPollFailedRegenerate
	default:
		if hasBaseline {
			return msgTimeoutRegenerateKept
		}
		return msgTimeoutRegenerate
	}
}
