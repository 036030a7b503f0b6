package dialog

// User-facing texts. The bot speaks Russian; dev-mode variants carry the
// DEV prefix so testers can tell the flows apart.
const (
	msgStartGreeting   = "Привет! Давайте зарегистрируем вашу лекцию (основной режим)."
	msgAskDiscipline   = "1. Напишите название дисциплины:"
	msgDevStart        = "⚙️ Режим разработчика: Обработка TXT.\n1. Введите название дисциплины:"
	msgResetDone       = "Состояние сброшено. Используйте /start или /dev_process_txt."
	msgResetNothing    = "Нет активного процесса для сброса."
	msgUnknown         = "Неизвестная команда или состояние. Используйте /start или /dev_process_txt."
	msgBusyProcessing  = "⏳ Обработка уже идёт. Дождитесь завершения или используйте /reset."
	msgEmptyDiscipline = "Название не может быть пустым."
	msgEmptyTeacher    = "Имя не может быть пустым."
	msgTeacherSpaces   = "Ошибка: без пробелов (ИвановИИ)."
	msgEmptyDateTime   = "Дата/время не могут быть пустыми."
	msgBadDateTime     = "Ошибка формата: нужен ЧЧ:ММ-ДД.ММ.ГГГГ."
	msgBadDriveLink    = "❌ Пожалуйста, отправьте корректную ссылку на файл в Google Drive."
	msgLinkAccepted    = "✅ Ссылка получена!"
	msgBadTxtFile      = "❌ Пожалуйста, отправьте файл именно в формате .txt."
	msgEmptyTxtFile    = "❌ Отправленный TXT файл пуст. Пожалуйста, отправьте файл с текстом."
	msgTxtReadFailed   = "❌ Не удалось прочитать отправленный файл. Используйте /reset."

	msgTypeDiscipline = "Введите название текстом."
	msgTypeTeacher    = "Введите ФИО текстом без пробелов."
	msgTypeDateTime   = "Введите дату/время текстом."
	msgTypeDriveLink  = "Пожалуйста, отправьте ссылку на Google Drive текстом."
	msgTypeTxtFile    = "Пожалуйста, отправьте именно файл с расширением .txt"

	msgHelp = "Привет! Я бот для обработки аудиозаписей лекций.\n\n" +
		"Основной режим:\n" +
		"1. Начните с /start.\n" +
		"2. Введите: Дисциплину -> Преподавателя -> Дату/Время -> Ссылку Google Drive.\n" +
		"3. Бот скачает, обработает аудио и пришлет отчет.\n\n" +
		"Режим разработчика (для теста NLP/DocGen):\n" +
		"1. Начните с /dev_process_txt.\n" +
		"2. Введите: Дисциплину -> Преподавателя -> Дату/Время.\n" +
		"3. Отправьте файл .txt с готовым транскриптом.\n" +
		"4. Бот пропустит обработку аудио и сразу запустит анализ/генерацию отчета.\n\n" +
		"Используйте /reset для сброса в любом режиме."
)

func msgDisciplineAccepted(discipline string) string {
	return "Отлично! Дисциплина: '" + discipline + "'.\n2. Введите ФИО преподавателя (слитно):"
}

func msgTeacherAccepted(teacher string) string {
	return "Принято! Преподаватель: '" + teacher + "'.\n3. Введите дату и время (ЧЧ:ММ-ДД.ММ.ГГГГ):"
}

func msgDateTimeAccepted(timeStr, dateStr string) string {
	return "Понял! " + timeStr + " (" + dateStr + ").\n4. Отправьте ссылку Google Drive (доступ 'Всем')."
}

func msgDevDisciplineAccepted(discipline string) string {
	return "DEV: Дисциплина '" + discipline + "'.\n2. Введите ФИО преподавателя (слитно):"
}

func msgDevTeacherAccepted(teacher string) string {
	return "DEV: Преподаватель '" + teacher + "'.\n3. Введите дату и время (ЧЧ:ММ-ДД.ММ.ГГГГ):"
}

const msgDevMetadataDone = "✅ DEV: Метаданные собраны.\n4. Теперь отправьте файл .txt с готовым транскриптом лекции."

func msgDevTxtAccepted(fileName string) string {
	return "✅ DEV: Файл " + fileName + " получен. Читаю транскрипт..."
}

// stateGuidance maps a waiting state to the nudge sent when the input type
// does not match what the state expects.
func stateGuidance(state string) string {
	switch state {
	case "waiting_discipline":
		return msgTypeDiscipline
	case "waiting_teacher":
		return msgTypeTeacher
	case "waiting_datetime":
		return msgTypeDateTime
	case "waiting_source":
		return msgTypeDriveLink
	case "waiting_dev_discipline":
		return "DEV: " + msgTypeDiscipline
	case "waiting_dev_teacher":
		return "DEV: " + msgTypeTeacher
	case "waiting_dev_datetime":
		return "DEV: " + msgTypeDateTime
	case "waiting_transcript":
		return msgTypeTxtFile
	default:
		return msgUnknown
	}
}
