package ui

import (
	"os"
	"strings"

	"github.com/ytget/ytgrab/internal/failure"
	"github.com/ytget/ytgrab/internal/model"
)

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
	remedies        map[string]map[failure.Category][]string
}

// Text keys for localization
const (
	KeyAppTitle          = "app_title"
	KeyProbe             = "probe"
	KeyDownload          = "download"
	KeyCancel            = "cancel"
	KeyResume            = "resume"
	KeyDiscard           = "discard"
	KeyClose             = "close"
	KeySettings          = "settings"
	KeyFile              = "file"
	KeyLanguage          = "language"
	KeyDownloadDirectory = "download_directory"
	KeyQualityPreset     = "quality_preset"
	KeyFFmpegLocation    = "ffmpeg_location"
	KeyMaxStalled        = "max_stalled"
	KeyCompatibility     = "compatibility_pass"
	KeyAutoReveal        = "auto_reveal"
	KeySave              = "save"
	KeyBrowse            = "browse"
	KeyEnterURL          = "enter_url"
	KeySelectRendition   = "select_rendition"
	KeySettingsSaved     = "settings_saved"
	KeyProbing           = "probing"
	KeyProbeFailed       = "probe_failed"
	KeyDuration          = "duration"
	KeyDownloadStarted   = "download_started"
	KeyDownloadCompleted = "download_completed"
	KeyDownloadFailed    = "download_failed"
	KeyDownloadCancelled = "download_cancelled"
	KeyCancelling        = "cancelling"
	KeyOpenFolder        = "open_folder"
	KeyShowFile          = "show_file"
	KeyErrorOpeningFile  = "error_opening_file"
	KeyInvalidURL        = "invalid_url"
	KeyPleaseEnterURL    = "please_enter_url"
	KeyPleaseSelect      = "please_select"
	KeyBusy              = "busy"
	KeyAlreadyExists     = "already_exists"
	KeyAlreadyExistsBody = "already_exists_body"
	KeyTempFound         = "temp_found"
	KeyTempRemoved       = "temp_removed"
	KeyTempFile          = "temp_file"
	KeyErrorCategory     = "error_category"
	KeyWhatToDo          = "what_to_do"
	KeyToolsMissing      = "tools_missing"
	KeyStep              = "step"
)

// stage and category names are looked up under these prefixes
const (
	stageKeyPrefix    = "stage_"
	categoryKeyPrefix = "category_"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
		remedies:        make(map[string]map[failure.Category][]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		lang = systemLanguage()
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// systemLanguage maps LANG (e.g. ru_RU.UTF-8) to a language code
func systemLanguage() string {
	for _, env := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(env); len(v) >= 2 {
			return strings.ToLower(v[:2])
		}
	}
	return "en"
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	return key
}

// StageName returns the display name of a pipeline stage
func (l *Localization) StageName(stage model.Stage) string {
	return l.GetText(stageKeyPrefix + string(stage))
}

// CategoryName returns the display name of an error category
func (l *Localization) CategoryName(category string) string {
	if category == "" {
		category = string(failure.CategoryUnknown)
	}
	return l.GetText(categoryKeyPrefix + category)
}

// Remediation returns translated advice for a category. English comes
// straight from the classifier.
func (l *Localization) Remediation(category string) []string {
	c := failure.Category(category)
	if byCat, ok := l.remedies[l.currentLanguage]; ok {
		if lines, ok := byCat[c]; ok {
			return lines
		}
		return byCat[failure.CategoryUnknown]
	}
	return failure.Remediation(c)
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"ru": "Русский",
		"pt": "Português",
	}
}

// initializeTexts initializes all text translations
func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyAppTitle:          "YT Grab",
		KeyProbe:             "Get formats",
		KeyDownload:          "Download",
		KeyCancel:            "Cancel",
		KeyResume:            "Resume",
		KeyDiscard:           "Delete temp file",
		KeyClose:             "Close",
		KeySettings:          "Settings",
		KeyFile:              "File",
		KeyLanguage:          "Language",
		KeyDownloadDirectory: "Download Directory",
		KeyQualityPreset:     "Preselected Quality",
		KeyFFmpegLocation:    "FFmpeg Location",
		KeyMaxStalled:        "Attempts Without Progress",
		KeyCompatibility:     "Re-encode merged video for compatibility",
		KeyAutoReveal:        "Open folder when finished",
		KeySave:              "Save",
		KeyBrowse:            "Browse",
		KeyEnterURL:          "Enter video URL (https://youtube.com/watch?v=...)",
		KeySelectRendition:   "Select quality",
		KeySettingsSaved:     "Settings saved successfully!",
		KeyProbing:           "Fetching available formats...",
		KeyProbeFailed:       "Could not get formats",
		KeyDuration:          "Duration",
		KeyDownloadStarted:   "Download started",
		KeyDownloadCompleted: "Download completed",
		KeyDownloadFailed:    "Download failed",
		KeyDownloadCancelled: "Download cancelled",
		KeyCancelling:        "Cancelling...",
		KeyOpenFolder:        "Open folder",
		KeyShowFile:          "Show file",
		KeyErrorOpeningFile:  "Error opening file",
		KeyInvalidURL:        "Invalid URL",
		KeyPleaseEnterURL:    "Please enter a URL",
		KeyPleaseSelect:      "Please get formats and select a quality first",
		KeyBusy:              "A download is already running",
		KeyAlreadyExists:     "File already exists",
		KeyAlreadyExistsBody: "A file with this title already exists:\n%s\n\nDownload it again?",
		KeyTempFound:         "An unfinished download was found",
		KeyTempRemoved:       "Temp file removed",
		KeyTempFile:          "Temp file",
		KeyErrorCategory:     "Problem",
		KeyWhatToDo:          "What you can try",
		KeyToolsMissing:      "ffmpeg was not found: only renditions that already contain audio can be saved",
		KeyStep:              "Step %d/%d",

		stageKeyPrefix + string(model.StageNotStarted):     "Waiting",
		stageKeyPrefix + string(model.StageFetchingPrimary): "Downloading video",
		stageKeyPrefix + string(model.StageFetchingAudio):   "Getting audio",
		stageKeyPrefix + string(model.StageMuxing):          "Merging",
		stageKeyPrefix + string(model.StageTranscoding):     "Converting",
		stageKeyPrefix + string(model.StageDone):            "Done",
		stageKeyPrefix + string(model.StageCancelled):       "Cancelled",
		stageKeyPrefix + string(model.StageFailed):          "Failed",

		categoryKeyPrefix + string(failure.CategoryNetwork):    "Network problem",
		categoryKeyPrefix + string(failure.CategoryDisk):       "Not enough disk space",
		categoryKeyPrefix + string(failure.CategoryPermission): "Access denied",
		categoryKeyPrefix + string(failure.CategoryFormat):     "Format problem",
		categoryKeyPrefix + string(failure.CategoryURL):        "Video unavailable",
		categoryKeyPrefix + string(failure.CategoryUnknown):    "Unknown error",
	}

	l.texts["ru"] = map[string]string{
		KeyAppTitle:          "YT Grab",
		KeyProbe:             "Получить форматы",
		KeyDownload:          "Скачать",
		KeyCancel:            "Отмена",
		KeyResume:            "Продолжить",
		KeyDiscard:           "Удалить временный файл",
		KeyClose:             "Закрыть",
		KeySettings:          "Настройки",
		KeyFile:              "Файл",
		KeyLanguage:          "Язык",
		KeyDownloadDirectory: "Папка загрузки",
		KeyQualityPreset:     "Качество по умолчанию",
		KeyFFmpegLocation:    "Путь к FFmpeg",
		KeyMaxStalled:        "Попыток без прогресса",
		KeyCompatibility:     "Перекодировать видео для совместимости",
		KeyAutoReveal:        "Открыть папку после загрузки",
		KeySave:              "Сохранить",
		KeyBrowse:            "Обзор",
		KeyEnterURL:          "Введите URL видео (https://youtube.com/watch?v=...)",
		KeySelectRendition:   "Выберите качество",
		KeySettingsSaved:     "Настройки успешно сохранены!",
		KeyProbing:           "Получение доступных форматов...",
		KeyProbeFailed:       "Не удалось получить форматы",
		KeyDuration:          "Длительность",
		KeyDownloadStarted:   "Загрузка начата",
		KeyDownloadCompleted: "Загрузка завершена",
		KeyDownloadFailed:    "Ошибка загрузки",
		KeyDownloadCancelled: "Загрузка отменена",
		KeyCancelling:        "Отмена...",
		KeyOpenFolder:        "Открыть папку",
		KeyShowFile:          "Показать файл",
		KeyErrorOpeningFile:  "Ошибка открытия файла",
		KeyInvalidURL:        "Неверный URL",
		KeyPleaseEnterURL:    "Пожалуйста, введите URL",
		KeyPleaseSelect:      "Сначала получите форматы и выберите качество",
		KeyBusy:              "Загрузка уже выполняется",
		KeyAlreadyExists:     "Файл уже существует",
		KeyAlreadyExistsBody: "Файл с таким названием уже есть:\n%s\n\nСкачать снова?",
		KeyTempFound:         "Найдена незавершённая загрузка",
		KeyTempRemoved:       "Временный файл удалён",
		KeyTempFile:          "Временный файл",
		KeyErrorCategory:     "Проблема",
		KeyWhatToDo:          "Что можно попробовать",
		KeyToolsMissing:      "ffmpeg не найден: можно сохранить только форматы со звуком",
		KeyStep:              "Этап %d/%d",

		stageKeyPrefix + string(model.StageNotStarted):     "Ожидание",
		stageKeyPrefix + string(model.StageFetchingPrimary): "Загрузка видео",
		stageKeyPrefix + string(model.StageFetchingAudio):   "Получение звука",
		stageKeyPrefix + string(model.StageMuxing):          "Объединение",
		stageKeyPrefix + string(model.StageTranscoding):     "Конвертация",
		stageKeyPrefix + string(model.StageDone):            "Готово",
		stageKeyPrefix + string(model.StageCancelled):       "Отменено",
		stageKeyPrefix + string(model.StageFailed):          "Ошибка",

		categoryKeyPrefix + string(failure.CategoryNetwork):    "Проблема с сетью",
		categoryKeyPrefix + string(failure.CategoryDisk):       "Недостаточно места на диске",
		categoryKeyPrefix + string(failure.CategoryPermission): "Нет доступа",
		categoryKeyPrefix + string(failure.CategoryFormat):     "Проблема с форматом",
		categoryKeyPrefix + string(failure.CategoryURL):        "Видео недоступно",
		categoryKeyPrefix + string(failure.CategoryUnknown):    "Неизвестная ошибка",
	}

	l.texts["pt"] = map[string]string{
		KeyAppTitle:          "YT Grab",
		KeyProbe:             "Obter formatos",
		KeyDownload:          "Baixar",
		KeyCancel:            "Cancelar",
		KeyResume:            "Retomar",
		KeyDiscard:           "Excluir arquivo temporário",
		KeyClose:             "Fechar",
		KeySettings:          "Configurações",
		KeyFile:              "Arquivo",
		KeyLanguage:          "Idioma",
		KeyDownloadDirectory: "Diretório de Download",
		KeyQualityPreset:     "Qualidade Pré-selecionada",
		KeyFFmpegLocation:    "Local do FFmpeg",
		KeyMaxStalled:        "Tentativas Sem Progresso",
		KeyCompatibility:     "Recodificar vídeo para compatibilidade",
		KeyAutoReveal:        "Abrir pasta ao concluir",
		KeySave:              "Salvar",
		KeyBrowse:            "Navegar",
		KeyEnterURL:          "Digite a URL do vídeo (https://youtube.com/watch?v=...)",
		KeySelectRendition:   "Selecione a qualidade",
		KeySettingsSaved:     "Configurações salvas com sucesso!",
		KeyProbing:           "Obtendo formatos disponíveis...",
		KeyProbeFailed:       "Não foi possível obter os formatos",
		KeyDuration:          "Duração",
		KeyDownloadStarted:   "Download iniciado",
		KeyDownloadCompleted: "Download concluído",
		KeyDownloadFailed:    "Falha no download",
		KeyDownloadCancelled: "Download cancelado",
		KeyCancelling:        "Cancelando...",
		KeyOpenFolder:        "Abrir pasta",
		KeyShowFile:          "Mostrar arquivo",
		KeyErrorOpeningFile:  "Erro ao abrir arquivo",
		KeyInvalidURL:        "URL inválida",
		KeyPleaseEnterURL:    "Por favor, digite uma URL",
		KeyPleaseSelect:      "Obtenha os formatos e selecione uma qualidade primeiro",
		KeyBusy:              "Um download já está em andamento",
		KeyAlreadyExists:     "O arquivo já existe",
		KeyAlreadyExistsBody: "Já existe um arquivo com este título:\n%s\n\nBaixar novamente?",
		KeyTempFound:         "Foi encontrado um download incompleto",
		KeyTempRemoved:       "Arquivo temporário removido",
		KeyTempFile:          "Arquivo temporário",
		KeyErrorCategory:     "Problema",
		KeyWhatToDo:          "O que você pode tentar",
		KeyToolsMissing:      "ffmpeg não encontrado: apenas formatos com áudio podem ser salvos",
		KeyStep:              "Etapa %d/%d",

		stageKeyPrefix + string(model.StageNotStarted):     "Aguardando",
		stageKeyPrefix + string(model.StageFetchingPrimary): "Baixando vídeo",
		stageKeyPrefix + string(model.StageFetchingAudio):   "Obtendo áudio",
		stageKeyPrefix + string(model.StageMuxing):          "Mesclando",
		stageKeyPrefix + string(model.StageTranscoding):     "Convertendo",
		stageKeyPrefix + string(model.StageDone):            "Concluído",
		stageKeyPrefix + string(model.StageCancelled):       "Cancelado",
		stageKeyPrefix + string(model.StageFailed):          "Falhou",

		categoryKeyPrefix + string(failure.CategoryNetwork):    "Problema de rede",
		categoryKeyPrefix + string(failure.CategoryDisk):       "Espaço em disco insuficiente",
		categoryKeyPrefix + string(failure.CategoryPermission): "Acesso negado",
		categoryKeyPrefix + string(failure.CategoryFormat):     "Problema de formato",
		categoryKeyPrefix + string(failure.CategoryURL):        "Vídeo indisponível",
		categoryKeyPrefix + string(failure.CategoryUnknown):    "Erro desconhecido",
	}

	l.remedies["ru"] = map[failure.Category][]string{
		failure.CategoryNetwork:    {"Проверьте подключение к интернету", "Перезагрузите роутер", "Проверьте настройки брандмауэра", "Попробуйте использовать VPN"},
		failure.CategoryDisk:       {"Освободите место на диске", "Удалите ненужные файлы", "Выберите другую папку", "Очистите корзину"},
		failure.CategoryPermission: {"Запустите приложение с достаточными правами", "Проверьте права доступа к папке", "Выберите другую папку", "Закройте программы, использующие файл"},
		failure.CategoryFormat:     {"Попробуйте другое разрешение", "Обновите yt-dlp", "Проверьте поддержку формата системой"},
		failure.CategoryURL:        {"Проверьте правильность URL", "Убедитесь, что видео не приватное", "Попробуйте другой URL", "Проверьте доступность видео в вашем регионе"},
		failure.CategoryUnknown:    {"Перезапустите приложение", "Обновите yt-dlp", "Посмотрите подробности в журнале", "Обратитесь за помощью, приложив текст ошибки"},
	}

	l.remedies["pt"] = map[failure.Category][]string{
		failure.CategoryNetwork:    {"Verifique sua conexão com a internet", "Reinicie o roteador", "Verifique as configurações do firewall", "Tente usar uma VPN"},
		failure.CategoryDisk:       {"Libere espaço em disco", "Remova arquivos desnecessários", "Escolha outra pasta de destino", "Esvazie a lixeira"},
		failure.CategoryPermission: {"Execute o aplicativo com permissões suficientes", "Verifique as permissões da pasta de destino", "Escolha outra pasta de destino", "Feche outros programas que usam o arquivo"},
		failure.CategoryFormat:     {"Tente outra resolução", "Atualize o yt-dlp", "Verifique se o sistema suporta o formato"},
		failure.CategoryURL:        {"Verifique se a URL está correta", "Certifique-se de que o vídeo não é privado", "Tente outra URL", "Verifique se o vídeo está disponível na sua região"},
		failure.CategoryUnknown:    {"Reinicie o aplicativo", "Atualize o yt-dlp", "Consulte o registro para detalhes", "Peça ajuda incluindo o texto do erro"},
	}
}
